package model

// RegisterRequest is the body of POST /users.
type RegisterRequest struct {
	UserID      string `json:"user_id" validate:"required,max=128"`
	DisplayName string `json:"display_name" validate:"omitempty,max=255"`
}

// AddPointsRequest is the body of POST /users/{user_id}/xp.
type AddPointsRequest struct {
	Points   int    `json:"points" validate:"required,gt=0,lte=10000"`
	Category string `json:"category" validate:"required,max=64"`
}

// UnlockCategoryRequest is the body of POST /users/{user_id}/unlock.
type UnlockCategoryRequest struct {
	Category string `json:"category" validate:"required,max=64"`
}

// BookmarkRequest is the body of POST /users/{user_id}/bookmarks.
type BookmarkRequest struct {
	ContentID   string `json:"content_id" validate:"required,max=128"`
	Title       string `json:"title" validate:"required,max=1000"`
	Topic       string `json:"topic" validate:"omitempty,max=64"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	URL         string `json:"url" validate:"omitempty,url"`
}

// ReportRequest is the body of POST /reports.
type ReportRequest struct {
	UserID       string `json:"user_id" validate:"required,max=128"`
	ContentID    string `json:"content_id" validate:"required,max=255"`
	ReportedText string `json:"reported_text" validate:"omitempty,max=5000"`
	Reason       string `json:"reason" validate:"required,max=1000"`
}
