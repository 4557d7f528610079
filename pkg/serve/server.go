// Package serve exposes a scanner.Core over a newline-delimited JSON
// protocol on a pair of streams, typically stdin and stdout.
package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/praetorian-inc/dfamatch/pkg/scanner"
)

// Version is the server protocol version.
const Version = "1.0.0"

// Server answers requests read from in on out, one at a time.
type Server struct {
	core    *scanner.Core
	encoder *json.Encoder
	decoder *json.Decoder
	logger  *zap.Logger
}

// NewServer creates a new streaming server.
func NewServer(core *scanner.Core, in io.Reader, out io.Writer) *Server {
	return &Server{
		core:    core,
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(bufio.NewReader(in)),
		logger:  zap.NewNop(),
	}
}

// WithLogger sets the logger for request-level diagnostics.
func (s *Server) WithLogger(logger *zap.Logger) *Server {
	if logger != nil {
		s.logger = logger
	}
	return s
}

type decoded struct {
	req Request
	err error
}

// Run sends the ready handshake and serves requests until a close request,
// the end of input, or cancellation of ctx.
func (s *Server) Run(ctx context.Context) error {
	if err := s.respond(Response{Success: true, Type: "ready", Data: mustMarshal(ReadyData{
		Version:  Version,
		Machines: len(s.core.Machines()),
	})}); err != nil {
		return err
	}

	// Requests and the terminal decode error share one channel so every
	// request read before EOF is answered.
	incoming := make(chan decoded)
	go func() {
		defer close(incoming)
		for {
			var d decoded
			d.err = s.decoder.Decode(&d.req)
			select {
			case incoming <- d:
			case <-ctx.Done():
				return
			}
			if d.err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-incoming:
			if !ok {
				return ctx.Err()
			}
			if d.err != nil {
				if errors.Is(d.err, io.EOF) {
					return nil
				}
				s.logger.Warn("decoding request", zap.Error(d.err))
				return s.respond(Response{Type: "decode", Error: d.err.Error()})
			}
			done, err := s.handle(d.req)
			if err != nil || done {
				return err
			}
		}
	}
}

// handle answers one request and reports whether the server should stop.
func (s *Server) handle(req Request) (bool, error) {
	s.logger.Debug("request", zap.String("type", req.Type))

	var data any
	var err error
	switch req.Type {
	case RequestScan:
		var p ScanPayload
		if err = json.Unmarshal(req.Payload, &p); err == nil {
			data, err = s.core.Scan(p.Content, p.Source)
		}
	case RequestScanBatch:
		var p ScanBatchPayload
		if err = json.Unmarshal(req.Payload, &p); err == nil {
			data, err = s.core.ScanBatch(p.Items)
		}
	case RequestMachines:
		data = s.machines()
	case RequestClose:
		return true, nil
	default:
		err = fmt.Errorf("unknown request type: %s", req.Type)
	}

	if err != nil {
		return false, s.respond(Response{Type: req.Type, Error: err.Error()})
	}
	return false, s.respond(Response{Success: true, Type: req.Type, Data: mustMarshal(data)})
}

func (s *Server) machines() []MachineInfo {
	machines := s.core.Machines()
	infos := make([]MachineInfo, 0, len(machines))
	for _, m := range machines {
		infos = append(infos, MachineInfo{
			ID:           m.ID,
			Name:         m.Name,
			StructuralID: m.StructuralID,
			States:       m.NumStates(),
			Tags:         m.TagNames(),
		})
	}
	return infos
}

func (s *Server) respond(resp Response) error {
	if err := s.encoder.Encode(resp); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	return nil
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("serve: marshaling %T: %v", v, err))
	}
	return data
}
