// Package stdioapi serves tools over newline-delimited JSON envelopes on a
// pair of streams, normally the process's stdin and stdout.
package stdioapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const maxLineSize = 1 << 20

// Handler runs one tool invocation.
type Handler func(ctx context.Context, params json.RawMessage) (ToolResult, error)

type Server struct {
	in  io.Reader
	out io.Writer
	log zerolog.Logger

	mu    sync.Mutex // guards out
	tools map[string]Handler
	wg    sync.WaitGroup
}

func NewServer(in io.Reader, out io.Writer, logger zerolog.Logger) *Server {
	return &Server{
		in:    in,
		out:   out,
		log:   logger,
		tools: make(map[string]Handler),
	}
}

// Register binds a handler to a tool name. Not safe to call once Serve runs.
func (s *Server) Register(name string, h Handler) {
	s.tools[name] = h
}

// inboundLine is one line of input. Lines over maxLineSize arrive with
// tooLong set and their text dropped.
type inboundLine struct {
	text    string
	tooLong bool
}

var errLineTooLong = fmt.Errorf("request line exceeds %d bytes", maxLineSize)

// Serve reads requests until the input ends or ctx is cancelled. Each request
// runs on its own goroutine; on end of input Serve waits for them to finish.
func (s *Server) Serve(ctx context.Context) error {
	lines := make(chan inboundLine)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		r := bufio.NewReaderSize(s.in, 64*1024)
		for {
			text, tooLong, err := readLine(r)
			if text != "" || tooLong {
				select {
				case lines <- inboundLine{text: text, tooLong: tooLong}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("stdio server stopping")
			s.wg.Wait()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				s.wg.Wait()
				var err error
				select {
				case err = <-readErr:
				default:
				}
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				s.log.Info().Msg("input closed")
				return nil
			}
			if line.tooLong {
				s.log.Warn().Int("limit", maxLineSize).Msg("discarding oversized request line")
				s.write(newError(unknownIDJSON(), &ParseError{Err: errLineTooLong}))
				continue
			}
			if strings.TrimSpace(line.text) == "" {
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleLine(ctx, line.text)
			}()
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed to its end and reported as tooLong.
func readLine(r *bufio.Reader) (string, bool, error) {
	var (
		buf     []byte
		tooLong bool
	)
	for {
		chunk, isPrefix, err := r.ReadLine()
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if err != nil || !isPrefix {
			return string(buf), tooLong, err
		}
	}
}

func unknownIDJSON() json.RawMessage {
	return json.RawMessage(`"` + unknownID + `"`)
}

func (s *Server) handleLine(ctx context.Context, line string) {
	req, err := parseRequest(line)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to parse request")
		s.write(newError(unknownIDJSON(), &ParseError{Err: err}))
		return
	}
	if req.Type != typeRequest {
		s.log.Debug().Str("type", req.Type).Msg("ignoring non-request message")
		return
	}
	if len(req.ID) == 0 || string(req.ID) == "null" {
		req.ID = unknownIDJSON()
	}

	log := s.log.With().RawJSON("id", req.ID).Str("tool", req.Tool).Logger()
	result, err := s.dispatch(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("tool invocation failed")
		s.write(newError(req.ID, err))
		return
	}
	log.Debug().Msg("tool invocation completed")
	s.write(newResult(req.ID, result))
}

// parseRequest decodes one line. Anything other than a JSON object, null
// included, is rejected.
func parseRequest(line string) (Request, error) {
	var req Request
	body := strings.TrimSpace(line)
	if !strings.HasPrefix(body, "{") {
		if !json.Valid([]byte(body)) {
			return req, json.Unmarshal([]byte(body), &req)
		}
		return req, errNotObject
	}
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		return req, err
	}
	return req, nil
}

var errNotObject = errors.New("request must be a JSON object")

func (s *Server) dispatch(ctx context.Context, req Request) (result ToolResult, err error) {
	h, ok := s.tools[req.Tool]
	if !ok {
		return ToolResult{}, &UnknownToolError{Tool: req.Tool}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return h(ctx, req.Params)
}

func (s *Server) write(resp Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
		return
	}
	b = append(b, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.out.Write(b); err != nil {
		s.log.Error().Err(err).Msg("failed to write response")
	}
}
