package registry

import "fmt"

// NotFoundError is returned when toggling an extension that has no state in the guild
type NotFoundError struct {
	Extension string
	GuildID   string
}

func (n *NotFoundError) Error() string {
	return fmt.Sprintf("Extension %q is not known in this guild", n.Extension)
}

// IsRejection marks the error as a refusal to show to the author rather than a failure
func (n *NotFoundError) IsRejection() bool { return true }
