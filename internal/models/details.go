package models

// Details is a user's physiological profile. A user has at most one.
type Details struct {
	ID     int64   `json:"id_details" db:"id_details"`
	UserID int64   `json:"id_user" db:"id_user"`
	Gender string  `json:"gender" db:"gender"`
	Age    int     `json:"age" db:"age"`
	Weight float64 `json:"weight" db:"weight"`
	Height float64 `json:"height" db:"height"`
}

// DetailsInput carries the writable details fields.
type DetailsInput struct {
	Gender string  `json:"gender" validate:"required"`
	Age    int     `json:"age" validate:"gte=0,lte=150"`
	Weight float64 `json:"weight" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}
