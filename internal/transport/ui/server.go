// Package ui exposes the scheduler and save operations to the rendering
// shell over a loopback websocket. One JSON request frame in, one
// response frame out; mutations are followed by a full state push so
// the shell can re-render.
package ui

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"villagekeep/internal/sim/assign"
)

type Server struct {
	sched *assign.Scheduler
	save  func() error
	log   *log.Logger

	upgrader websocket.Upgrader
}

func NewServer(sched *assign.Scheduler, save func() error, logger *log.Logger) *Server {
	return &Server{
		sched: sched,
		save:  save,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			// Loopback shell only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type request struct {
	Op       string `json:"op"`
	Slot     int    `json:"slot,omitempty"`
	Hero     int    `json:"hero,omitempty"`
	Building string `json:"building,omitempty"`
}

type response struct {
	Op    string `json:"op"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Busy            *bool   `json:"busy,omitempty"`
	ForConstruction *bool   `json:"for_construction,omitempty"`
	CanAssign       *bool   `json:"can_assign,omitempty"`
	Hours           float64 `json:"hours,omitempty"`

	State json.RawMessage `json:"state,omitempty"`
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(10 * time.Minute))
			var req request
			if err := conn.ReadJSON(&req); err != nil {
				return
			}
			resp := s.handle(req)
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}
}

func (s *Server) handle(req request) response {
	switch req.Op {
	case "assign":
		s.sched.Assign(req.Slot, req.Hero)
		return s.withState(response{Op: req.Op, OK: true})

	case "cancel":
		s.sched.Cancel(req.Slot)
		return s.withState(response{Op: req.Op, OK: true})

	case "improve":
		if err := s.sched.Improve(req.Slot, req.Building); err != nil {
			return response{Op: req.Op, Error: err.Error()}
		}
		return s.withState(response{Op: req.Op, OK: true})

	case "busy":
		b, fc, ok := s.sched.HeroBusy(req.Hero)
		if !ok {
			return response{Op: req.Op, Error: "unknown hero"}
		}
		return response{Op: req.Op, OK: true, Busy: &b, ForConstruction: &fc}

	case "can_assign":
		can := s.sched.CanAssign(req.Slot, req.Hero)
		return response{Op: req.Op, OK: true, CanAssign: &can}

	case "display_hours":
		return response{Op: req.Op, OK: true, Hours: s.sched.DisplayHours(req.Slot)}

	case "state":
		return s.withState(response{Op: req.Op, OK: true})

	case "save":
		if s.save == nil {
			return response{Op: req.Op, Error: "saving unavailable"}
		}
		if err := s.save(); err != nil {
			return response{Op: req.Op, Error: err.Error()}
		}
		return response{Op: req.Op, OK: true}

	default:
		return response{Op: req.Op, Error: "unknown op"}
	}
}
func (s *Server) withState(resp response) response {
	b, err := s.sched.StateJSON()
	if err != nil {
		if s.log != nil {
			s.log.Printf("state render: %v", err)
		}
		return resp
	}
	resp.State = b
	return resp
}
