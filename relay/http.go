package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/mqy/minichat/auth"
	pb "github.com/mqy/minichat/proto"
)

const apiTimeout = 5 * time.Second

// Router serves the live channel at /ws and the history and peer discovery API under /v1.
func (h *Hub) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/ws", h)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/messages", h.withAuth(h.getMessages)).Methods(http.MethodGet)
	v1.HandleFunc("/superadmin-email", h.withAuth(h.getSuperadmin)).Methods(http.MethodGet)
	v1.HandleFunc("/get-admin-users", h.getAdminUsers).Methods(http.MethodGet)
	return r
}

type authedHandler func(w http.ResponseWriter, r *http.Request, caller string)

func (h *Hub) withAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := h.conf.Verifier.Verify(r)
		if err != nil {
			glog.V(2).Infof("relay: %s %s: %v", r.Method, r.URL.Path, err)
			status := http.StatusUnauthorized
			if !errors.Is(err, auth.ErrUnauthenticated) {
				status = http.StatusInternalServerError
			}
			http.Error(w, http.StatusText(status), status)
			return
		}
		next(w, r, caller)
	}
}

// getMessages returns the transcript between `from` and `to`. A caller known by its token
// may only read its own conversations.
func (h *Hub) getMessages(w http.ResponseWriter, r *http.Request, caller string) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if from == "" || to == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}
	if caller != "" && caller != from && caller != to {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), apiTimeout)
	defer cancel()
	msgs, err := h.conf.Store.Between(ctx, from, to)
	if err != nil {
		glog.Errorf("relay: load messages %s <-> %s error: %v", from, to, err)
		http.Error(w, "temp storage error", http.StatusInternalServerError)
		return
	}
	if msgs == nil {
		msgs = []*pb.Message{}
	}
	writeJSON(w, msgs)
}

func (h *Hub) getSuperadmin(w http.ResponseWriter, r *http.Request, _ string) {
	root := h.conf.Directory.Superadmin
	writeJSON(w, &pb.Identity{Id: root.Id, Email: root.Email})
}

func (h *Hub) getAdminUsers(w http.ResponseWriter, r *http.Request) {
	out := make([]pb.Identity, 0, len(h.conf.Directory.Admins))
	for _, a := range h.conf.Directory.Admins {
		out = append(out, pb.Identity{Id: a.Id, Email: a.Email, Name: a.Name})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Errorf("relay: write response error: %v", err)
	}
}
