package domain

// Contact identifies the person acting on the portal. It is supplied by the
// identity collaborator and only used for attribution and form prefill.
type Contact struct {
	ID    string
	Name  string
	Email string
}
