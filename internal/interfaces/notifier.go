package interfaces

// NoticeLevel is the severity of a user-facing notice
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is one user-facing message
type Notice struct {
	Level   NoticeLevel
	Message string
	Err     error
}

// Notifier surfaces notices to the user, one call per failure event
type Notifier interface {
	Notify(n Notice)
}
