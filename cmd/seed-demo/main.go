// seed-demo materializes the demo close period and prints it as JSON.
// The server seeds the same dataset at startup; this tool exists so the
// fixtures can be inspected or fed to API clients without running the
// server.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/closing_backend/models"
	"bitbucket.org/mmdatafocus/closing_backend/utils"
)

func main() {
	store := models.NewStore()
	utils.ErrorPanic(models.SeedDemo(store))

	type entry struct {
		Asset   *models.Asset          `json:"asset"`
		Checks  []*models.QualityCheck `json:"checks"`
		Uploads []*models.Upload       `json:"uploads"`
	}
	var out []entry
	for _, a := range store.ListByPeriod("") {
		checks, err := store.Checks(a.ID)
		utils.ErrorPanic(err)
		uploads, err := store.Uploads(a.ID)
		utils.ErrorPanic(err)
		out = append(out, entry{Asset: a, Checks: checks, Uploads: uploads})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
