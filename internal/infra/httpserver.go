package infra

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// HTTPServer wraps the API listener and, when TLS is configured, a plain HTTP
// listener that redirects every request to the HTTPS origin.
type HTTPServer struct {
	server   *http.Server
	redirect *http.Server
	certFile string
	keyFile  string
}

// NewHTTPServer creates a configured HTTP server instance.
func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	s := &HTTPServer{}
	addr := ":" + cfg.Port
	if cfg.TLSEnabled() {
		addr = ":" + cfg.TLSPort
		s.certFile, s.keyFile = cfg.TLSCert, cfg.TLSKey
		s.redirect = &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           RedirectToHTTPS(cfg.TLSPort),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
	}
	return s
}

// Addr returns the address the API listener binds to.
func (s *HTTPServer) Addr() string {
	if s.server == nil {
		return ""
	}
	return s.server.Addr
}

// TLS reports whether the API listener serves HTTPS.
func (s *HTTPServer) TLS() bool {
	return s.certFile != ""
}

// Start runs the servers in the current goroutine. It returns when the API
// listener stops; http.ErrServerClosed after Shutdown is reported as nil.
func (s *HTTPServer) Start() error {
	if s.server == nil {
		return nil
	}
	if s.redirect == nil {
		return ignoreClosed(s.server.ListenAndServe())
	}

	redirectErr := make(chan error, 1)
	go func() { redirectErr <- ignoreClosed(s.redirect.ListenAndServe()) }()

	err := ignoreClosed(s.server.ListenAndServeTLS(s.certFile, s.keyFile))
	if err != nil {
		_ = s.redirect.Close()
		return err
	}
	return <-redirectErr
}

// Shutdown gracefully stops the HTTP servers.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	var errs []error
	if s.redirect != nil {
		errs = append(errs, s.redirect.Shutdown(ctx))
	}
	errs = append(errs, s.server.Shutdown(ctx))
	return errors.Join(errs...)
}

// RedirectToHTTPS answers every request with a permanent redirect to the same
// path on the TLS port.
func RedirectToHTTPS(tlsPort string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		host = strings.Trim(host, "[]")
		if strings.Contains(host, ":") {
			host = "[" + host + "]"
		}
		if tlsPort != "" && tlsPort != "443" {
			host += ":" + tlsPort
		}
		http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
