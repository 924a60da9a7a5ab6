package server

import (
	"fmt"
	"html"
	"net/http"
)

// handleIndex handles GET /
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only handle exact root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	jobs := s.jobManager.ListJobs()

	fmt.Fprint(w, "<!DOCTYPE html><html><head><title>hyperfit</title></head><body>")
	fmt.Fprint(w, "<h1>Optimization jobs</h1>")
	if len(jobs) == 0 {
		fmt.Fprint(w, "<p>No jobs. POST /api/v1/jobs to start one.</p>")
	} else {
		fmt.Fprint(w, "<table border=\"1\" cellpadding=\"4\">")
		fmt.Fprint(w, "<tr><th>ID</th><th>State</th><th>Function</th><th>Dims</th><th>Optimizer</th><th>Iter</th><th>Best cost</th></tr>")
		for _, job := range jobs {
			fmt.Fprintf(w, "<tr><td><a href=\"/api/v1/jobs/%s\">%s</a></td><td>%s</td><td>%s</td><td>%d</td><td>%s</td><td>%d</td><td>%g</td></tr>",
				html.EscapeString(job.ID), html.EscapeString(job.ID), job.State,
				html.EscapeString(job.Config.Function), job.Config.Dims,
				html.EscapeString(job.Config.Optimizer), job.Iterations, job.BestCost)
		}
		fmt.Fprint(w, "</table>")
	}
	fmt.Fprint(w, "</body></html>")
}
