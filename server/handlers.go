package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/dselans/undbc/blast"
	"github.com/dselans/undbc/config"
	"github.com/dselans/undbc/dbc"
)

const (
	// CodeTrailer carries the blast result code once the body is complete.
	CodeTrailer = "X-Blast-Code"

	HeaderRecords      = "X-Dbc-Records"
	HeaderRecordLength = "X-Dbc-Record-Length"
	HeaderLength       = "X-Dbc-Header-Length"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func (s *Server) healthCheckHandler(rw http.ResponseWriter, r *http.Request) {
	rw.WriteHeader(http.StatusOK)
	rw.Write([]byte("OK"))
}

func (s *Server) versionHandler(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"version": config.VERSION})
}

// dbcHandler converts the DBC file in the request body to DBF.
func (s *Server) dbcHandler(rw http.ResponseWriter, r *http.Request) {
	body := s.limitBody(rw, r)

	d, err := dbc.NewStream(r.Context(), body, s.cfg.TOML.Config.WindowSize, s.cfg.TOML.Config.StreamDepth)
	if err != nil {
		s.writeError(rw, err)
		return
	}
	defer d.Close()

	hdr := d.Header()
	rw.Header().Set(HeaderRecords, strconv.FormatUint(uint64(hdr.NumRecords), 10))
	rw.Header().Set(HeaderRecordLength, strconv.Itoa(int(hdr.RecordLength)))
	rw.Header().Set(HeaderLength, strconv.Itoa(hdr.Length))

	s.stream(rw, d, "dbc")
}

// blastHandler decompresses the raw DCL stream in the request body.
func (s *Server) blastHandler(rw http.ResponseWriter, r *http.Request) {
	body := s.limitBody(rw, r)

	z, err := blast.NewStream(r.Context(), body, s.cfg.TOML.Config.WindowSize, s.cfg.TOML.Config.StreamDepth)
	if err != nil {
		s.writeError(rw, err)
		return
	}
	defer z.Close()

	s.stream(rw, z, "blast")
}

func (s *Server) limitBody(rw http.ResponseWriter, r *http.Request) io.Reader {
	if s.cfg.TOML.Server.MaxBodySize > 0 {
		return http.MaxBytesReader(rw, r.Body, s.cfg.TOML.Server.MaxBodySize)
	}

	return r.Body
}

// stream copies src to the response. Errors up to the first decoded byte
// get a proper error status; after that the status is already sent and the
// outcome is only reported in the CodeTrailer trailer.
func (s *Server) stream(rw http.ResponseWriter, src io.Reader, kind string) {
	llog := s.log.WithFields(logrus.Fields{
		"method": "stream",
		"kind":   kind,
	})

	buf := make([]byte, 32*1024)

	n, err := src.Read(buf)
	if n == 0 && err != nil && err != io.EOF {
		s.writeError(rw, err)
		return
	}

	rw.Header().Set("Content-Type", "application/octet-stream")
	rw.Header().Set("Trailer", CodeTrailer)
	rw.WriteHeader(http.StatusOK)

	total := int64(n)

	if _, werr := rw.Write(buf[:n]); werr != nil {
		llog.Warnf("client went away: %v", werr)
		return
	}

	if err == nil {
		var m int64
		m, err = io.CopyBuffer(rw, src, buf)
		total += m
	}

	if err == io.EOF {
		err = nil
	}

	code := blast.CodeOf(err)
	rw.Header().Set(CodeTrailer, strconv.Itoa(int(code)))

	if err != nil {
		llog.Warnf("stream failed after %d bytes: %v", total, err)
		return
	}

	llog.Debugf("streamed %d bytes", total)
}

func (s *Server) writeError(rw http.ResponseWriter, err error) {
	status := http.StatusBadRequest

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
	} else if code := blast.CodeOf(err); code < 0 {
		status = http.StatusUnprocessableEntity
	}

	s.log.Debugf("request failed with status %d: %v", status, err)

	writeJSON(rw, status, &errorResponse{
		Error: err.Error(),
		Code:  int(blast.CodeOf(err)),
	})
}

func writeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)

	if err := json.NewEncoder(rw).Encode(v); err != nil {
		logrus.WithField("pkg", "server").Errorf("unable to write response: %v", err)
	}
}
