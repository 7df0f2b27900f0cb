// Command seed populates the three write services with demo data and then
// polls the query service until the composed view converges, printing how
// long propagation took.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	var (
		hrURL       = flag.String("hr-url", getenv("HR_URL", "http://localhost:8081"), "hr service base url")
		empURL      = flag.String("employment-url", getenv("EMPLOYMENT_URL", "http://localhost:8082"), "employment service base url")
		secURL      = flag.String("security-url", getenv("SECURITY_URL", "http://localhost:8083"), "security service base url")
		queryURL    = flag.String("query-url", getenv("QUERY_URL", "http://localhost:8084"), "query service base url")
		waitTimeout = flag.Duration("wait", 30*time.Second, "how long to wait for the composed view to converge")
	)
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	people := []map[string]any{
		{"name": "Ada Lovelace", "email": "ada@example.com", "hire_date": "2024-01-15"},
		{"name": "Grace Hopper", "email": "grace@example.com", "hire_date": "2024-03-01"},
		{"name": "Alan Kay", "email": "alan@example.com"},
	}
	titles := []map[string]any{
		{"title": "Staff Engineer", "department": "Platform", "salary": 185000.0},
		{"title": "Principal Engineer", "department": "Compilers", "salary": 210000.0},
		{"title": "Research Fellow", "department": "Labs", "salary": 240000.0},
	}
	access := []map[string]any{
		{"access_level": "STANDARD", "clearance": "NONE"},
		{"access_level": "ELEVATED", "clearance": "SECRET"},
		{"access_level": "STANDARD", "clearance": "CONFIDENTIAL"},
	}

	var lastPersonID string
	for i, p := range people {
		personID := postForID(client, *hrURL+"/api/persons", p)
		fmt.Printf("created person %s (%s)\n", personID, p["name"])

		emp := titles[i]
		emp["person_id"] = personID
		employeeID := postForID(client, *empURL+"/api/employees", emp)
		fmt.Printf("assigned employee %s\n", employeeID)

		badge := access[i]
		badge["person_id"] = personID
		badgeID := postForID(client, *secURL+"/api/badges", badge)
		fmt.Printf("provisioned badge %s\n", badgeID)

		lastPersonID = personID
	}

	fmt.Printf("waiting for composed view of %s ...\n", lastPersonID)
	start := time.Now()
	deadline := time.Now().Add(*waitTimeout)
	for {
		if composedReady(client, *queryURL+"/api/composed/"+lastPersonID) {
			fmt.Printf("composed view ready after %s\n", time.Since(start).Round(time.Millisecond))
			return
		}
		if time.Now().After(deadline) {
			fatal("composed view did not converge in time")
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func postForID(client *http.Client, url string, body map[string]any) string {
	payload, err := json.Marshal(body)
	if err != nil {
		fatal(err.Error())
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		fatal(fmt.Sprintf("POST %s: status %d", url, resp.StatusCode))
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		fatal(err.Error())
	}
	return created.ID
}

// composedReady reports whether the composed view has the person, an
// employee and a badge.
func composedReady(client *http.Client, url string) bool {
	resp, err := client.Get(url)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var view struct {
		Person   json.RawMessage `json:"person"`
		Employee json.RawMessage `json:"employee"`
		Badge    json.RawMessage `json:"badge"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return false
	}
	return len(view.Person) > 0 && string(view.Employee) != "null" && len(view.Employee) > 0 &&
		string(view.Badge) != "null" && len(view.Badge) > 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
