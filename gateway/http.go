package gateway

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"contractvm/core"
)

// subscribeRequest asks the worker loop to resolve a contract's web
// bundle, mirroring ClientRequest::Subscribe in
// original_source/crates/http-gw/src/client_proxy.rs.
type subscribeRequest struct {
	key core.ContractKey
}

// subscribeResponse carries back either the unpacked index.html contents
// (found) or a "no bundle associated" result (!found), or an error.
type subscribeResponse struct {
	index []byte
	found bool
	err   error
}

// Server is the HTTP surface of spec.md §6 (the "HTTP surface
// (collaborator)" section): three routes bridging client requests to the
// ContractStore and the packed-state bundle format, through a Dispatcher
// instead of calling the store directly, so the same request/reply
// plumbing spec.md §5 describes for the wider node is exercised here too.
type Server struct {
	store      *core.ContractStore
	dispatcher *Dispatcher
	bundleRoot string
	logger     *logrus.Logger
}

// NewServer builds a Server serving bundles unpacked under bundleRoot.
func NewServer(store *core.ContractStore, bundleRoot string, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Server{
		store:      store,
		dispatcher: NewDispatcher(),
		bundleRoot: bundleRoot,
		logger:     logger,
	}
	go s.worker()
	return s
}

// worker is the single consumer of the dispatcher's queue, standing in for
// the node's event loop in the original (ClientEventsProxy::recv/send).
func (s *Server) worker() {
	ctx := context.Background()
	for {
		id, req, err := s.dispatcher.Recv(ctx)
		if err != nil {
			return
		}
		switch r := req.(type) {
		case subscribeRequest:
			resp := s.resolveSubscribe(r.key)
			if err := s.dispatcher.Reply(id, resp); err != nil {
				s.logger.WithError(err).Warn("gateway: failed to deliver subscribe reply")
			}
		default:
			_ = s.dispatcher.Reply(id, subscribeResponse{err: ErrInvalidParam})
		}
	}
}

func (s *Server) resolveSubscribe(key core.ContractKey) subscribeResponse {
	packed, ok := s.store.FetchPackedState(key)
	if !ok {
		return subscribeResponse{found: false}
	}
	destDir := filepath.Join(s.bundleRoot, key.String())
	webPath, err := core.UnpackBundle(packed, destDir)
	if err != nil {
		return subscribeResponse{err: err}
	}
	index, err := core.ReadIndexHTML(webPath)
	if err != nil {
		return subscribeResponse{err: err}
	}
	return subscribeResponse{index: index, found: true}
}

// Router builds the gorilla/mux router for the three routes of spec.md §6.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/contract/{key}/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/contract/{key}", s.handleContract).Methods(http.MethodGet)
	return r
}

// handleHome is "GET / — home; returns an empty success body" (spec.md §6).
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleContract is "GET /contract/{key}" (spec.md §6): subscribes to the
// contract named by key and, if a web bundle is associated, returns
// web/index.html as HTML.
func (s *Server) handleContract(w http.ResponseWriter, r *http.Request) {
	rawKey := strings.ToLower(mux.Vars(r)["key"])
	key, err := core.DecodeContractKey(rawKey)
	if err != nil {
		serveError(w, err, http.StatusBadRequest)
		return
	}

	result, err := s.dispatcher.Submit(r.Context(), subscribeRequest{key: key})
	if err != nil {
		serveError(w, ErrNodeUnavailable, http.StatusBadGateway)
		return
	}
	resp, ok := result.(subscribeResponse)
	if !ok {
		serveError(w, ErrNodeUnavailable, http.StatusBadGateway)
		return
	}
	if resp.err != nil {
		serveError(w, resp.err, http.StatusInternalServerError)
		return
	}
	if !resp.found {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.index)
}

// handleState is "GET /contract/{key}/state — placeholder that echoes the
// key" (spec.md §6).
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(key))
}

// serveError writes err's text as a plain-text body with the given status.
// handleContract chooses the status: 400 on decode failure, 502 when the
// dispatcher cannot deliver a reply, 500 otherwise.
func serveError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(err.Error()))
}
