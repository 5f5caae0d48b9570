package handlers

const (
	ErrInvalidFormData     = "Invalid form data"
	ErrInvalidID           = "Invalid id"
	ErrForbidden           = "Forbidden"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
	ErrGroupNotFound       = "Group not found"
	ErrChildNotFound       = "Child not found"

	MsgRegistered    = "Registration successful. Please log in."
	MsgChildCreated  = "Child created successfully!"
	MsgChildUpdated  = "Child updated successfully!"
	MsgChildDeleted  = "Child deleted successfully!"
	MsgChildSaveFail = "Failed to save child. Please try again."
	MsgGroupSaved    = "Group saved successfully!"
	MsgGroupDeleted  = "Group deleted successfully!"
)
