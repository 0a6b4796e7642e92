package entity

// AdminPoolID is the shared participant id every admin replies as.
const AdminPoolID = "admin-1"

type SenderType string

const (
	SenderInstaller SenderType = "installer"
	SenderAdmin     SenderType = "admin"
)

func (t SenderType) IsValid() bool {
	switch t {
	case SenderInstaller, SenderAdmin:
		return true
	}
	return false
}

// Opposite returns the role that reads what t writes.
func (t SenderType) Opposite() SenderType {
	if t == SenderAdmin {
		return SenderInstaller
	}
	return SenderAdmin
}

type Participant struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type SenderType `json:"type"`
}
