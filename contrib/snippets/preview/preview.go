// Package preview serves documentation snippets over HTTP and pushes
// changes to connected browsers over a WebSocket while the sources are
// being edited.
package preview

import (
	"html/template"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/couchbase/docs-sdk-go/contrib/snippets"
)

const (
	// UpdateSnapshot is sent once to every new client and lists all files.
	UpdateSnapshot = "snapshot"
	// UpdateChanged is sent when a file was parsed again.
	UpdateChanged = "changed"
	// UpdateRemoved is sent when a file was deleted or lost its last region.
	UpdateRemoved = "removed"
	// UpdateError is sent when a changed file has malformed directives.
	UpdateError = "error"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
)

// FileTags names the tags of one file, by path relative to the server root.
type FileTags struct {
	File string   `json:"file"`
	Tags []string `json:"tags"`
}

// Update is the message pushed to WebSocket clients.
type Update struct {
	Type  string     `json:"type"`
	Files []FileTags `json:"files,omitempty"`
	Error string     `json:"error,omitempty"`
}

// Server is an http.Handler with these routes:
//
//	/          index of files and tags
//	/snippet   text of one tag, from the file and tag query parameters
//	/ws        WebSocket stream of Update messages
type Server struct {
	root string
	opts snippets.ScanOptions
	log  zerolog.Logger

	mu    sync.RWMutex
	files map[string]*snippets.File

	clientsMu sync.Mutex
	clients   map[*client]struct{}

	upgrader gorilla.Upgrader
	mux      *http.ServeMux
}

type client struct {
	conn *gorilla.Conn
	send chan Update
}

// New scans root and returns a Server for the files found. Malformed
// directives are logged, the files are served with the regions that parsed.
func New(root string, opts snippets.ScanOptions, log zerolog.Logger) (*Server, error) {
	files, err := snippets.Scan(root, opts)
	if err != nil {
		if files == nil {
			return nil, err
		}
		log.Warn().Err(err).Msg("Some files have malformed tags")
	}

	s := &Server{
		root:    root,
		opts:    opts,
		log:     log,
		files:   map[string]*snippets.File{},
		clients: map[*client]struct{}{},
		mux:     http.NewServeMux(),
	}
	for _, f := range files {
		s.files[s.rel(f.Name)] = f
	}

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/snippet", s.handleSnippet)
	s.mux.HandleFunc("/ws", s.handleWS)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) rel(path string) string {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Snapshot lists every file and its tags, sorted by file.
func (s *Server) Snapshot() []FileTags {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]FileTags, 0, len(s.files))
	for name, f := range s.files {
		out = append(out, FileTags{File: name, Tags: f.Tags()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

// Reload parses path again and tells every client about the result.
func (s *Server) Reload(path string) {
	name := s.rel(path)

	f, err := snippets.ParseFile(path)
	if err != nil && f == nil {
		s.Remove(path)
		return
	}

	if err == nil && len(f.Regions) == 0 {
		s.Remove(path)
		return
	}

	s.mu.Lock()
	if len(f.Regions) == 0 {
		delete(s.files, name)
	} else {
		s.files[name] = f
	}
	s.mu.Unlock()

	update := Update{Type: UpdateChanged, Files: []FileTags{{File: name, Tags: f.Tags()}}}
	if err != nil {
		update.Type = UpdateError
		update.Error = err.Error()
		s.log.Warn().Err(err).Str("file", name).Msg("Malformed tags")
	} else {
		s.log.Debug().Str("file", name).Strs("tags", f.Tags()).Msg("Reloaded")
	}
	s.broadcast(update)
}

// Remove forgets path and tells every client.
func (s *Server) Remove(path string) {
	name := s.rel(path)

	s.mu.Lock()
	_, known := s.files[name]
	delete(s.files, name)
	s.mu.Unlock()

	if known {
		s.broadcast(Update{Type: UpdateRemoved, Files: []FileTags{{File: name}}})
	}
}

func (s *Server) broadcast(u Update) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for c := range s.clients {
		select {
		case c.send <- u:
		default:
			// The client is not keeping up; drop it.
			delete(s.clients, c)
			close(c.send)
		}
	}
}

func (s *Server) register(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Server) unregister(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan Update, sendBuffer)}
	c.send <- Update{Type: UpdateSnapshot, Files: s.Snapshot()}
	s.register(c)

	go s.writeLoop(c)
	s.readLoop(c)
}

// readLoop discards incoming messages until the connection fails.
func (s *Server) readLoop(c *client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *client) {
	for u := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(u); err != nil {
			s.log.Debug().Err(err).Msg("WebSocket write failed")
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteControl(gorilla.CloseMessage,
		gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
}

func (s *Server) handleSnippet(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	tag := r.URL.Query().Get("tag")
	if name == "" || tag == "" {
		http.Error(w, "file and tag are required", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	f, ok := s.files[name]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "unknown file "+name, http.StatusNotFound)
		return
	}

	text, err := f.Extract(tag, snippets.WithDedent())
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Snippets</title></head>
<body>
{{range .}}<h2>{{.File}}</h2>
<ul>
{{$file := .File}}{{range .Tags}}<li><a href="/snippet?file={{$file}}&amp;tag={{.}}">{{.}}</a></li>
{{end}}</ul>
{{end}}<script>
new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws").onmessage = function (ev) {
  if (JSON.parse(ev.data).type !== "snapshot") location.reload();
};
</script>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.Snapshot()); err != nil {
		s.log.Error().Err(err).Msg("Failed to render index")
	}
}
