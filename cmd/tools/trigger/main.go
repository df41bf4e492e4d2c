package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Fires the full discovery + qualification dispatch against a running
// server. Needs an officer token in API_TOKEN.
func main() {
	token := strings.TrimSpace(os.Getenv("API_TOKEN"))
	if token == "" {
		fmt.Println("Missing API_TOKEN environment variable")
		os.Exit(1)
	}

	base := os.Getenv("API_BASE")
	if base == "" {
		base = "http://localhost:8081"
	}

	req, err := http.NewRequest("POST", base+"/api/v1/opportunities/sync", nil)
	if err != nil {
		fmt.Printf("Error creating request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	fmt.Printf("Response Status: %s\n", resp.Status)
	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
