package config

const (
	HCType        = "Content-Type"
	HETag         = "ETag"
	HCacheControl = "Cache-Control"

	CTypeJSON = "application/json"
)

const (
	FormFieldPurpose   = "purpose"
	FormFieldSlotIndex = "slotIndex"
	FormFieldFile      = "file"

	FormFieldEntityID   = "entityId"
	FormFieldEntityType = "entityType"
	FormFieldImageType  = "imageType"
)
