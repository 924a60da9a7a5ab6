package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
)

var statusCmd = &cobra.Command{
	Use:   "status [job-id]",
	Short: "Query server status or specific job",
	Long: `Queries the server for job status information.
If no job-id is provided, lists all jobs.
If job-id is provided, shows detailed status for that job.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listJobs(fmt.Sprintf("%s/api/v1/jobs", serverURL))
	}
	jobID := args[0]
	return getJobStatus(fmt.Sprintf("%s/api/v1/jobs/%s/status", serverURL, jobID), jobID)
}

func listJobs(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var jobs []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("Found %d job(s):\n\n", len(jobs))
	for _, job := range jobs {
		config := job["config"].(map[string]interface{})
		fmt.Printf("Job ID: %s\n", job["id"])
		fmt.Printf("  State: %s\n", job["state"])
		fmt.Printf("  Function: %s (%v dims)\n", config["function"], config["dims"])
		fmt.Printf("  Optimizer: %s\n", config["optimizer"])
		if job["bestCost"] != nil && job["iterations"].(float64) > 0 {
			fmt.Printf("  Cost: %.6g -> %.6g\n", job["initialCost"], job["bestCost"])
		}
		fmt.Println()
	}

	return nil
}

func getJobStatus(url, jobID string) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned error: %s", string(body))
	}

	var status map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	// Display status
	fmt.Printf("Job: %s\n", status["id"])
	fmt.Printf("State: %s\n", status["state"])
	fmt.Println()

	config := status["config"].(map[string]interface{})
	fmt.Println("Configuration:")
	fmt.Printf("  Function: %s\n", config["function"])
	fmt.Printf("  Dimensions: %v\n", config["dims"])
	fmt.Printf("  Optimizer: %s\n", config["optimizer"])
	fmt.Printf("  Iterations: %v\n", config["iters"])
	fmt.Printf("  Population: %v\n", config["popSize"])
	fmt.Println()

	fmt.Println("Progress:")
	if iterations, ok := status["iterations"].(float64); ok && iterations > 0 {
		fmt.Printf("  Iterations: %.0f\n", iterations)
	}
	if initialCost, ok := status["initialCost"].(float64); ok && initialCost > 0 {
		fmt.Printf("  Initial Cost: %.6g\n", initialCost)
		if bestCost, ok := status["bestCost"].(float64); ok {
			improvement := initialCost - bestCost
			improvementPct := (improvement / initialCost) * 100
			fmt.Printf("  Best Cost: %.6g\n", bestCost)
			fmt.Printf("  Improvement: %.6g (%.1f%%)\n", improvement, improvementPct)
		}
	} else if bestCost, ok := status["bestCost"].(float64); ok && bestCost != 0 {
		fmt.Printf("  Best Cost: %.6g\n", bestCost)
	}

	if bestReal, ok := status["bestReal"].([]interface{}); ok && len(bestReal) > 0 {
		point := make([]float64, len(bestReal))
		for i, v := range bestReal {
			point[i] = v.(float64)
		}
		fmt.Printf("  Best Point: %s\n", formatPoint(point))
	}

	if status["elapsed"] != nil {
		elapsed := time.Duration(status["elapsed"].(float64) * float64(time.Second))
		fmt.Printf("  Elapsed: %s\n", elapsed.Round(time.Millisecond))
	}

	if eps, ok := status["eps"].(float64); ok && eps > 0 {
		fmt.Printf("  Throughput: %.0f evals/sec\n", eps)
	}

	if errMsg, ok := status["error"].(string); ok && errMsg != "" {
		fmt.Printf("\nError: %s\n", errMsg)
	}

	return nil
}
