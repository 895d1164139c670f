// seed-demo provisions a demo business with a service, a staff member and a
// week of availability through the scheduling API. Useful for local smoke
// testing against a fresh instance.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		baseURL = flag.String("base-url", getenv("BASE_URL", "http://localhost:8084"), "scheduling service base url")
		owner   = flag.String("owner-id", getenv("OWNER_ID", "demo-owner"), "owner user id")
		name    = flag.String("business-name", getenv("BUSINESS_NAME", "Demo Barbershop"), "business name")
		days    = flag.Int("days", 7, "days of availability to declare starting tomorrow")
	)
	flag.Parse()

	api := strings.TrimRight(*baseURL, "/") + "/api/v1"

	var business struct {
		BusinessID string `json:"business_id"`
	}
	post(api+"/businesses", "", map[string]any{
		"name":     *name,
		"owner_id": *owner,
	}, &business)
	fmt.Println("business:", business.BusinessID)

	post(api+"/businesses/approve", "", map[string]any{
		"business_id": business.BusinessID,
	}, nil)

	var service struct {
		ServiceID string `json:"service_id"`
	}
	post(api+"/services", business.BusinessID, map[string]any{
		"business_id":      business.BusinessID,
		"name":             "Haircut",
		"duration_minutes": 30,
		"price_cents":      2500,
	}, &service)
	fmt.Println("service:", service.ServiceID)

	var staff struct {
		StaffID string `json:"staff_id"`
	}
	post(api+"/staff", business.BusinessID, map[string]any{
		"business_id": business.BusinessID,
		"name":        "Alex",
		"service_ids": []string{service.ServiceID},
	}, &staff)
	fmt.Println("staff:", staff.StaffID)

	slots := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "14:00", "14:30", "15:00"}
	for i := 1; i <= *days; i++ {
		date := time.Now().UTC().AddDate(0, 0, i).Format("2006-01-02")
		post(api+"/availability", business.BusinessID, map[string]any{
			"business_id": business.BusinessID,
			"staff_id":    staff.StaffID,
			"date":        date,
			"slots":       slots,
		}, nil)
		fmt.Println("availability:", date)
	}

	fmt.Println("done")
}

func post(url, businessID string, payload map[string]any, out any) {
	body, err := json.Marshal(payload)
	if err != nil {
		fatal(err.Error())
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if businessID != "" {
		req.Header.Set("X-Business-Id", businessID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		fatal(fmt.Sprintf("%s -> %s", url, resp.Status))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			fatal(err.Error())
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "error:", msg)
	os.Exit(1)
}
