package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/marmos91/asyncload/internal/cli/health"
	"github.com/marmos91/asyncload/internal/cli/output"
	"github.com/marmos91/asyncload/internal/cli/timeutil"
	"github.com/marmos91/asyncload/pkg/api/handlers"
	"github.com/spf13/cobra"
)

var (
	statusOutput  string
	statusAPIHost string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show loader status",
	Long: `Display the status of a loader started with 'asyncload serve'.

This command calls the health endpoint and the loader status endpoint of
the API server and prints uptime, strategy, queue depth and counters.

Examples:
  # Check status (uses default settings)
  asyncload status

  # Check status with custom API port
  asyncload status --api-port 9080

  # Output as JSON
  asyncload status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusAPIHost, "api-host", "localhost", "API server host")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 8080, "API server port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// LoaderStatus represents the status information printed by the command.
type LoaderStatus struct {
	Running    bool                     `json:"running" yaml:"running"`
	Healthy    bool                     `json:"healthy" yaml:"healthy"`
	Message    string                   `json:"message" yaml:"message"`
	InstanceID string                   `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`
	StartedAt  string                   `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime     string                   `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	Loader     *handlers.StatusResponse `json:"loader,omitempty" yaml:"loader,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := LoaderStatus{Message: "Loader is not running"}
	baseURL := fmt.Sprintf("http://%s:%d", statusAPIHost, statusAPIPort)
	client := &http.Client{Timeout: 2 * time.Second}

	var healthResp health.Response
	if err := getJSON(client, baseURL+"/health", &healthResp); err == nil {
		status.Running = true
		status.Healthy = healthResp.Status == "healthy"
		status.InstanceID = healthResp.Data.InstanceID
		status.StartedAt = healthResp.Data.StartedAt
		status.Uptime = healthResp.Data.Uptime
		if status.Healthy {
			status.Message = "Loader is running and healthy"
		} else {
			status.Message = fmt.Sprintf("Loader is running but unhealthy: %s", healthResp.Error)
		}

		var loaderResp handlers.StatusResponse
		if err := getJSON(client, baseURL+"/api/v1/loader/status", &loaderResp); err == nil {
			status.Loader = &loaderResp
		} else {
			status.Message = fmt.Sprintf("Loader is running but status is unavailable: %v", err)
		}
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		return printStatusTable(status)
	}
}

func getJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func printStatusTable(status LoaderStatus) error {
	fmt.Println()
	fmt.Println("AsyncLoad Status")
	fmt.Println("================")
	fmt.Println()

	if !status.Running {
		fmt.Printf("  Status:     \033[31m○ Stopped\033[0m\n")
		fmt.Println()
		fmt.Printf("  %s\n", status.Message)
		fmt.Println()
		return nil
	}

	if status.Healthy {
		fmt.Printf("  Status:     \033[32m● Running\033[0m\n")
	} else {
		fmt.Printf("  Status:     \033[33m● Running (unhealthy)\033[0m\n")
	}
	if status.InstanceID != "" {
		fmt.Printf("  Instance:   %s\n", status.InstanceID)
	}
	if status.StartedAt != "" {
		fmt.Printf("  Started:    %s\n", timeutil.FormatTimestamp(status.StartedAt))
	}
	if status.Uptime != "" {
		fmt.Printf("  Uptime:     %s\n", timeutil.FormatUptime(status.Uptime))
	}
	fmt.Println()

	if s := status.Loader; s != nil {
		pairs := [][2]string{
			{"Strategy", s.Strategy},
			{"Suspended", strconv.FormatBool(s.Suspended)},
			{"Queued", strconv.Itoa(s.Queued)},
			{"In flight", strconv.Itoa(s.InFlight)},
			{"Awaiting finalization", strconv.Itoa(s.Loaded)},
			{"Pending requests", strconv.Itoa(s.PendingRequests)},
			{"Succeeded", strconv.FormatUint(s.Succeeded, 10)},
			{"Failed", strconv.FormatUint(s.Failed, 10)},
			{"Canceled", strconv.FormatUint(s.Canceled, 10)},
			{"Ticks", strconv.FormatUint(s.Ticks, 10)},
		}
		if err := output.SimpleTable(os.Stdout, pairs); err != nil {
			return err
		}
		fmt.Println()

		if len(s.History) > 0 {
			now := time.Now()
			table := output.NewTableData("PACKAGE", "STATE", "DURATION", "FINISHED", "ERROR")
			for _, e := range s.History {
				table.AddRow(e.Name, e.StateName, timeutil.FormatDuration(e.Duration),
					timeutil.Ago(e.FinishedAt, now), output.Truncate(e.Error, 60))
			}
			if err := output.PrintTable(os.Stdout, table); err != nil {
				return err
			}
			fmt.Println()
		}
	}

	fmt.Printf("  %s\n", status.Message)
	fmt.Println()
	return nil
}
