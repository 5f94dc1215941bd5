// internal/controller/campaign_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "fmt"
    "net/http"

    appErrors "github.com/unclebandit/donorcall-backend/internal/errors"
    "github.com/unclebandit/donorcall-backend/internal/service"
)

// CampaignController is the operator-facing control surface: start a
// campaign, finalize a campaign.
type CampaignController struct {
    CampaignService *service.CampaignService
}

func (c *CampaignController) CallDonors(w http.ResponseWriter, r *http.Request) {
    var body struct {
        BloodGroup string `json:"blood_group"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    result, err := c.CampaignService.CallDonors(r.Context(), body.BloodGroup)
    if err != nil {
        if errors.Is(err, appErrors.ErrMissingBloodGroup) {
            w.Header().Set("Content-Type", "application/json")
            w.WriteHeader(http.StatusBadRequest)
            json.NewEncoder(w).Encode(map[string]interface{}{"error": "blood_group is required"})
            return
        }
        var notFound *appErrors.ErrNoDonorsFound
        if errors.As(err, &notFound) {
            w.Header().Set("Content-Type", "application/json")
            w.WriteHeader(http.StatusNotFound)
            json.NewEncoder(w).Encode(map[string]interface{}{
                "status": fmt.Sprintf("No %s donors found", notFound.BloodGroup),
            })
            return
        }
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "status": "Calls initiated",
        "count":  result.Count,
    })
}

func (c *CampaignController) FinalizeRequest(w http.ResponseWriter, r *http.Request) {
    rec, err := c.CampaignService.Finalize(r.Context())
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "blood_group":     rec.BloodGroup,
        "total_calls":     rec.TotalCalls,
        "answered_calls":  rec.AnsweredCalls,
        "confirmed_count": rec.ConfirmedCount,
    })
}
