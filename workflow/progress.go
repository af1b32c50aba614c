package workflow

import "bitbucket.org/mmdatafocus/closing_backend/models"

// Progress is the user-facing completion summary of one entry. It is a
// pure projection over the check ledger, the upload registry and the
// findings document; nothing in it is stored.
type Progress struct {
	UploadsDone  int                   `json:"uploads_done"`
	UploadsTotal int                   `json:"uploads_total"`
	ChecksDone   int                   `json:"checks_done"`
	ChecksTotal  int                   `json:"checks_total"`
	Findings     models.FindingsStatus `json:"findings"`
}

// ProjectProgress recomputes the summary from current state.
func ProjectProgress(store *models.Store, assetId string) (Progress, error) {
	var p Progress
	err := store.WithEntry(assetId, func() error {
		checks, err := store.Checks(assetId)
		if err != nil {
			return err
		}
		uploads, err := store.Uploads(assetId)
		if err != nil {
			return err
		}
		findings, err := store.Findings(assetId)
		if err != nil {
			return err
		}
		p = Progress{
			UploadsDone:  models.AttachedUploadCount(uploads),
			UploadsTotal: len(uploads),
			ChecksDone:   models.DoneCheckCount(checks),
			ChecksTotal:  len(checks),
			Findings:     findings.Status,
		}
		return nil
	})
	return p, err
}
