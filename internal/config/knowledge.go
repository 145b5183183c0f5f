package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Knowledge is the static business description the chat assistant answers
// from. It is fixed per deployment and never derived from user input.
type Knowledge struct {
	Business  string      `json:"business"`
	Summary   string      `json:"summary"`
	Services  []string    `json:"services"`
	Qualities []string    `json:"qualities"`
	Pricing   []PriceTier `json:"pricing"`
	Facts     []string    `json:"facts"`
	Contact   string      `json:"contact"`
	// Refusals holds the fixed off-topic reply per language code.
	Refusals map[string]string `json:"refusals"`
}

type PriceTier struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

// DefaultKnowledge is used when no knowledge file is present.
func DefaultKnowledge() Knowledge {
	return Knowledge{
		Business: "UIPrime",
		Summary: "UI Prime is a web design agency that builds high-performance, well-structured websites. " +
			"We specialize in transforming businesses into full-scale online enterprises.",
		Services: []string{
			"web design",
			"custom UI/UX design",
			"SEO",
			"performance optimization",
			"landing page development",
			"multi-page website development",
			"e-commerce development",
		},
		Qualities: []string{
			"responsive",
			"fast-loading",
			"SEO-optimized",
			"cleanly structured",
			"may include custom integrations",
		},
		Pricing: []PriceTier{
			{Name: "Landing page", Price: "€50"},
			{Name: "Content-based site", Price: "€250"},
			{Name: "E-commerce site", Price: "€500"},
		},
		Facts: []string{
			"We deliver projects quickly and with high quality.",
			"Free consultations are offered to identify growth opportunities.",
			"Our website packages are priced competitively.",
			"Example work includes car dealership websites and minimalist e-commerce templates.",
			"Customer satisfaction is a top priority.",
		},
		Contact: "the form on our homepage or email us at uiprime61@gmail.com",
		Refusals: map[string]string{
			"en": "I can only answer questions about UIPrime. For anything else, please use the contact form on our homepage or email us at uiprime61@gmail.com.",
			"ro": "Pot răspunde doar la întrebări despre UIPrime. Pentru alte solicitări, folosiți formularul de contact de pe pagina principală sau scrieți-ne la uiprime61@gmail.com.",
		},
	}
}

func loadKnowledge(path string) (Knowledge, error) {
	if path == "" {
		return DefaultKnowledge(), nil
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Printf("Warning: knowledge file not found at %s, using default knowledge base\n", path)
		return DefaultKnowledge(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Knowledge{}, fmt.Errorf("read knowledge file: %w", err)
	}

	if len(data) == 0 {
		return Knowledge{}, fmt.Errorf("knowledge file is empty: %s", path)
	}

	var knowledge Knowledge
	if err := json.Unmarshal(data, &knowledge); err != nil {
		return Knowledge{}, fmt.Errorf("parse knowledge JSON: %w", err)
	}

	if knowledge.Business == "" || knowledge.Summary == "" {
		return Knowledge{}, fmt.Errorf("knowledge file must define business and summary: %s", path)
	}

	if knowledge.Contact == "" {
		return Knowledge{}, fmt.Errorf("knowledge file must define a contact channel: %s", path)
	}

	return knowledge, nil
}
