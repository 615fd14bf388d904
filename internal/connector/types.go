// Package connector implements the connector pool (CORE-B): a per-host,
// per-connector-kind session table served by a single worker draining a
// shared request queue, modeled on the teacher's op executor / hub worker
// loops but generalised from a fixed websocket transport to any connector
// kind (SSH, HTTP, local shell).
package connector

import (
	"github.com/fleetcore/fleetcore/internal/hoststate"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/google/uuid"
)

// RequestType selects the I/O shape of one ConnectorRequest.
type RequestType int

const (
	Command RequestType = iota
	Download
	Upload
	Exit
)

// CachePolicy is carried on every request but, per spec.md §9, is not yet
// acted on inside the dispatcher — a future cache layer is implied, not
// built.
type CachePolicy int

const (
	UseCache CachePolicy = iota
	BypassCache
)

// ResponseMessage is the per-message outcome of a Command request.
type ResponseMessage struct {
	Message    string
	ReturnCode int
	IsError    bool
}

// UploadMeta carries the local-file metadata an Upload request needs beyond
// the remote path: whether the local copy is scratch and should be removed
// after a successful upload (spec.md §4.B).
type UploadMeta struct {
	RemotePath string
	Temporary  bool
	LocalPath  string
}

// Result is one entry of the ordered vector handed to a request's
// ResponseHandler: either a ResponseMessage or an error string, never both.
type Result struct {
	Response ResponseMessage
	Err      string
}

func Ok(r ResponseMessage) Result  { return Result{Response: r} }
func Err(msg string) Result        { return Result{Err: msg} }
func (r Result) IsErr() bool       { return r.Err != "" }

// ResponseHandler is the one-shot continuation invoked exactly once per
// accepted request, on the connection worker goroutine (spec.md §4.B
// guarantees). Implementations must return quickly — no heavy CPU, no
// blocking I/O of their own.
type ResponseHandler func(results []Result)

// Request is a unit of work enqueued by MonitorManager/CommandHandler and
// drained by the ConnectionManager worker. CorrelationID ties a request's
// log lines together across the connector boundary; it plays no role in
// dispatch logic.
type Request struct {
	ConnectorSpec *moduleid.Spec // nil means "no I/O needed"
	SourceID      string         // monitor/command id that built this request
	Host          hoststate.Host
	Messages      []string
	UploadMeta    []UploadMeta // one entry per file for Upload requests (Messages is unused for Upload)
	Type          RequestType
	ResponseHandler ResponseHandler
	CachePolicy   CachePolicy
	CorrelationID uuid.UUID
}

// NewCorrelationID generates a fresh request correlation id.
func NewCorrelationID() uuid.UUID { return uuid.New() }

// Connector is a reusable session to one host for one wire protocol
// (spec.md §6). Implementations need not be reentrant: the pool serialises
// all calls to a given connector behind its table lock.
type Connector interface {
	Connect(address string) error
	IsConnected() bool
	SendMessage(msg string) (ResponseMessage, error)
	DownloadFile(remote string) ([]byte, error)
	UploadFile(remote string, data []byte) error
	ModuleSpec() moduleid.Spec
}
