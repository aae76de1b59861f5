package server

import (
	"fmt"
	"net"

	"skrut/internal/utils"
)

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayAddress()
	s.displayEndpoints()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayAddress() {
	scheme := "http"
	if s.TLSConfig.Mode == "server" {
		scheme = "https"
	}
	fmt.Printf("Starting server on %s://%s\n", scheme, net.JoinHostPort(s.Host, s.Port))
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /                 - Service status")
	fmt.Println("  GET  /health           - Model health and circuit breakers")
	fmt.Println("  GET  /stats            - Server statistics")
	fmt.Println("  GET  /job-description  - Current job description")
	fmt.Println("  POST /job-description  - Replace the job description")
	fmt.Println("  POST /evaluate         - Evaluate an uploaded resume")
	fmt.Println("  POST /evaluate/stream  - Evaluate with Server-Sent Events progress")
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Upload size limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Println("Upload size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
