// Package main provides a standalone health check command for Cartwise
// This command can be used for Docker health checks, monitoring scripts, and debugging
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/cartwise/v3/pkg/healthcheck"
)

const (
	exitCodeSuccess = 0
	exitCodeFailure = 1
	exitCodeError   = 2
)

// Config holds command-line configuration
type Config struct {
	URL            string
	Timeout        time.Duration
	Verbose        bool
	OutputFormat   string
	Quick          bool
	ExpectedStatus string
	RetryCount     int
	RetryDelay     time.Duration
}

func main() {
	config := parseFlags()

	if config.Quick {
		os.Exit(runQuickProbe(config))
	}
	os.Exit(runHealthCheck(config))
}

// parseFlags parses command-line flags
func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.URL, "url", "", "Health check endpoint URL (e.g., http://localhost:8080/health)")
	flag.DurationVar(&config.Timeout, "timeout", 10*time.Second, "Request timeout")
	flag.BoolVar(&config.Verbose, "verbose", false, "Verbose output")
	flag.StringVar(&config.OutputFormat, "format", "text", "Output format: text, json, compact")
	flag.BoolVar(&config.Quick, "quick", false, "Reachability probe only, without decoding the response body")
	flag.StringVar(&config.ExpectedStatus, "expect", "healthy", "Expected status: healthy, degraded, unhealthy")
	flag.IntVar(&config.RetryCount, "retry", 0, "Number of retries on failure")
	flag.DurationVar(&config.RetryDelay, "retry-delay", 1*time.Second, "Delay between retries")

	flag.Parse()

	// Auto-detect URL if not provided
	if config.URL == "" {
		config.URL = detectHealthCheckURL()
	}

	return config
}

// detectHealthCheckURL attempts to detect the health check URL
func detectHealthCheckURL() string {
	// Check environment variables
	if url := os.Getenv("CARTWISE_HEALTH_URL"); url != "" {
		return url
	}

	// Check the planning API port, then the operator port
	commonURLs := []string{
		"http://localhost:8080/health",
		"http://127.0.0.1:8080/health",
		"http://127.0.0.1:8081/health",
	}

	for _, url := range commonURLs {
		if checkURLReachable(url) {
			return url
		}
	}

	return "http://localhost:8080/health"
}

// checkURLReachable checks if a URL is reachable
func checkURLReachable(url string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runQuickProbe answers only "is the endpoint up", judged by HTTP
// status class. Suitable for container HEALTHCHECK directives where
// decoding the body is wasted work.
func runQuickProbe(config Config) int {
	checker := healthcheck.NewExternalServiceChecker("cartwise", config.URL, config.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	check := checker.Check(ctx)

	switch config.OutputFormat {
	case "json":
		data, _ := json.MarshalIndent(check, "", "  ")
		fmt.Println(string(data))
	case "compact":
		data, _ := json.Marshal(check)
		fmt.Println(string(data))
	default:
		fmt.Printf("Status: %s\n", check.Status)
		if check.Message != "" {
			fmt.Printf("Message: %s\n", check.Message)
		}
		fmt.Printf("Duration: %dms\n", check.Duration.Milliseconds())
	}

	if check.Status == healthcheck.StatusHealthy {
		return exitCodeSuccess
	}
	return exitCodeFailure
}

// runHealthCheck performs a health check via HTTP and decodes the
// aggregated response
func runHealthCheck(config Config) int {
	client := &http.Client{Timeout: config.Timeout}

	var lastError error
	for attempt := 0; attempt <= config.RetryCount; attempt++ {
		if attempt > 0 {
			if config.Verbose {
				fmt.Printf("Retrying in %v... (attempt %d/%d)\n", config.RetryDelay, attempt, config.RetryCount)
			}
			time.Sleep(config.RetryDelay)
		}

		resp, err := client.Get(config.URL)
		if err != nil {
			lastError = err
			if config.Verbose {
				fmt.Printf("Request failed: %v\n", err)
			}
			continue
		}

		return handleResponse(resp, config)
	}

	fmt.Printf("Health check failed after %d attempts: %v\n", config.RetryCount+1, lastError)
	return exitCodeError
}

// handleResponse handles the HTTP response
func handleResponse(resp *http.Response, config Config) int {
	defer resp.Body.Close()

	var response map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		fmt.Printf("Failed to decode response: %v\n", err)
		return exitCodeError
	}

	return outputResult(response, config)
}

// outputResult outputs the result based on the configured format
func outputResult(result map[string]interface{}, config Config) int {
	status := extractStatus(result)

	switch config.OutputFormat {
	case "json":
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
	case "compact":
		data, _ := json.Marshal(result)
		fmt.Println(string(data))
	default: // text
		outputText(result, config.Verbose)
	}

	// Determine exit code based on status
	expectedStatus := healthcheck.Status(config.ExpectedStatus)
	if status == expectedStatus {
		return exitCodeSuccess
	}

	if status == healthcheck.StatusUnhealthy {
		return exitCodeFailure
	}

	// For degraded status when expecting healthy
	if status == healthcheck.StatusDegraded && expectedStatus == healthcheck.StatusHealthy {
		return exitCodeFailure
	}

	return exitCodeSuccess
}

// extractStatus extracts the status from the result
func extractStatus(result map[string]interface{}) healthcheck.Status {
	if result == nil {
		return healthcheck.StatusUnhealthy
	}
	if status, ok := result["status"].(string); ok {
		return healthcheck.Status(status)
	}
	return healthcheck.StatusUnhealthy
}

// outputText outputs the result in text format
func outputText(result map[string]interface{}, verbose bool) {
	if status, ok := result["status"].(string); ok {
		fmt.Printf("Status: %s\n", status)
	}
	if version, ok := result["version"].(string); ok {
		fmt.Printf("Version: %s\n", version)
	}
	if timestamp, ok := result["timestamp"].(string); ok {
		fmt.Printf("Timestamp: %s\n", timestamp)
	}
	if duration, ok := result["total_duration_ms"].(float64); ok {
		fmt.Printf("Duration: %.0fms\n", duration)
	}

	checks, ok := result["checks"].([]interface{})
	if !verbose || !ok || len(checks) == 0 {
		return
	}

	fmt.Println("\nChecks:")
	for _, raw := range checks {
		check, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		fmt.Printf("  %s: %s", check["name"], check["status"])
		if message, ok := check["message"].(string); ok && message != "" {
			fmt.Printf(" (%s)", message)
		}
		if duration, ok := check["duration_ms"].(float64); ok {
			fmt.Printf(" [%.0fms]", duration)
		}
		fmt.Println()
	}
}
