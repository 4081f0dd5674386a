// Command insighthub is the departmental KPI and work-tracking warehouse:
// a CLI over the SQLite store plus the dashboard's HTTP API.
package main

import "github.com/mesh-intelligence/insighthub/internal/cli"

func main() {
	cli.Execute()
}
