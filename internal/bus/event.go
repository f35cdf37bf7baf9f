package bus

import "time"

// Event namespaces.
const (
	NamespaceDB     = "db."     // row changes, Kind = db.<collection>.<op>
	NamespaceDaemon = "daemon." // daemon status transitions
	NamespaceLink   = "link."   // client feed link transitions
)

// Event is an in-process event. Payload type depends on Kind.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
