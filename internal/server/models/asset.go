package models

// Asset is a user-recorded asset description. The engine only reads assets,
// and only on the disclosure path; entry and editing belong to the vault UI.
type Asset struct {
	ID          string
	UserID      string
	Name        string
	Category    string
	Description string
}
