package connector

import (
	"fmt"
	"sync"

	"github.com/fleetcore/fleetcore/internal/filehandler"
	"github.com/fleetcore/fleetcore/internal/moduleid"
	"github.com/rs/zerolog"
)

// FileStager is the subset of the file-handler contract the connection
// worker needs to stage Download/Upload payloads (spec.md §6).
type FileStager interface {
	CreateFile(host, remotePath string, data []byte) (string, error)
	ReadFile(localPath string) (filehandler.Metadata, []byte, error)
	RemoveFile(localPath string) error
}

// Manager owns the connector table and the single worker that drains the
// shared request queue (spec.md §4.B).
type Manager struct {
	log zerolog.Logger

	mu         sync.Mutex
	connectors map[string]map[moduleid.Spec]Connector // host name -> spec -> connector

	requests chan Request
	done     chan struct{}

	files FileStager
}

// NewManager constructs a connection manager. files may be nil if the
// deployment never expects Download/Upload requests.
func NewManager(log zerolog.Logger, files FileStager) *Manager {
	return &Manager{
		log:        log.With().Str("component", "connection_manager").Logger(),
		connectors: make(map[string]map[moduleid.Spec]Connector),
		requests:   make(chan Request, 256),
		done:       make(chan struct{}),
		files:      files,
	}
}

// AddConnector idempotently registers a connector for host×spec (spec.md
// §4.B "add_connector").
func (m *Manager) AddConnector(host string, c Connector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byHost, ok := m.connectors[host]
	if !ok {
		byHost = make(map[moduleid.Spec]Connector)
		m.connectors[host] = byHost
	}
	spec := c.ModuleSpec()
	if _, exists := byHost[spec]; exists {
		return
	}
	byHost[spec] = c
}

// NewRequestSender hands out a producer handle onto the request queue.
func (m *Manager) NewRequestSender() chan<- Request { return m.requests }

// Join blocks until Run has returned.
func (m *Manager) Join() { <-m.done }

// Run is the single worker loop; start it with `go mgr.Run()` exactly once.
func (m *Manager) Run() {
	defer close(m.done)
	for req := range m.requests {
		if req.Type == Exit {
			return
		}
		m.handle(req)
	}
}

func (m *Manager) handle(req Request) {
	if req.ConnectorSpec == nil {
		// "No I/O needed" modules are piped through the same callback
		// plumbing with an empty result vector (spec.md §4.B step 2).
		req.ResponseHandler(nil)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock() // hold the table lock across the whole request (spec.md §5: serialise I/O per host)

	m.log.Debug().Str("host", req.Host.Name).Str("source", req.SourceID).Str("correlation_id", req.CorrelationID.String()).Msg("handling connector request")

	byHost, ok := m.connectors[req.Host.Name]
	if !ok {
		byHost = make(map[moduleid.Spec]Connector)
		m.connectors[req.Host.Name] = byHost
	}
	c, ok := byHost[*req.ConnectorSpec]
	if !ok || c == nil {
		m.log.Error().Str("host", req.Host.Name).Str("connector", req.ConnectorSpec.String()).
			Msg("no connector registered for host x spec; dropping request")
		req.ResponseHandler([]Result{Err(fmt.Sprintf("no connector registered for %s", req.ConnectorSpec))})
		return
	}

	if !c.IsConnected() {
		if err := c.Connect(req.Host.IPAddress); err != nil {
			m.log.Warn().Err(err).Str("host", req.Host.Name).Msg("connect failed")
			req.ResponseHandler([]Result{Err(err.Error())})
			return
		}
	}

	results := make([]Result, 0, len(req.Messages))
	switch req.Type {
	case Command:
		for _, msg := range req.Messages {
			resp, err := c.SendMessage(msg)
			if err != nil {
				results = append(results, Err(err.Error()))
				break // short-circuit remaining messages (spec.md §4.B, §8 property 7)
			}
			results = append(results, Ok(resp))
			if resp.ReturnCode != 0 {
				break
			}
		}
	case Download:
		for _, msg := range req.Messages {
			data, err := c.DownloadFile(msg)
			if err != nil {
				results = append(results, Err(err.Error()))
				continue // each message independent for Download/Upload
			}
			if m.files == nil {
				results = append(results, Err("no file handler configured"))
				continue
			}
			localPath, err := m.files.CreateFile(req.Host.Name, msg, data)
			if err != nil {
				results = append(results, Err(err.Error()))
				continue
			}
			results = append(results, Ok(ResponseMessage{Message: localPath}))
		}
	case Upload:
		for _, meta := range req.UploadMeta {
			if m.files == nil {
				results = append(results, Err("no file handler configured"))
				continue
			}
			_, data, err := m.files.ReadFile(meta.LocalPath)
			if err != nil {
				results = append(results, Err(err.Error()))
				continue
			}
			if err := c.UploadFile(meta.RemotePath, data); err != nil {
				results = append(results, Err(err.Error()))
				continue
			}
			if meta.Temporary {
				if err := m.files.RemoveFile(meta.LocalPath); err != nil {
					m.log.Warn().Err(err).Str("path", meta.LocalPath).Msg("failed to remove temporary upload file")
				}
			}
			results = append(results, Ok(ResponseMessage{}))
		}
	}

	req.ResponseHandler(results)
}
