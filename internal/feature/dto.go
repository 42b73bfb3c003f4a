// AngelaMos | 2026
// dto.go

package feature

type CreateFlagRequest struct {
	Name        string `json:"name"        validate:"required,min=1,max=100"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description" validate:"max=500"`
}

type UpdateFlagRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}
