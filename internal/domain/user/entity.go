package user

// User represents a user account in the system.
type User struct {
	ID    int64  `json:"id"`    // ID is assigned by the store on creation
	Name  string `json:"name"`  // Name is unique across all users
	Email string `json:"email"` // Email is unique across all users
}
