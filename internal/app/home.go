package app

// HomeCategory is one quick-help card on the Home tab.
type HomeCategory struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

var homeCatalogue = []HomeCategory{
	{
		Title:       "Payment Issues",
		Description: "Help with subscription renewal and billing problems",
		Examples: []string{
			"My payment was declined when trying to renew my subscription",
			"I haven't received an invoice for last month",
			"How do I update my payment method?",
		},
	},
	{
		Title:       "Account Access",
		Description: "Login problems and account security",
		Examples: []string{
			"I can't log into my account after changing my password",
			"How to enable two-factor authentication?",
			"Suspicious login attempt detected",
		},
	},
	{
		Title:       "Technical Support",
		Description: "App crashes and performance issues",
		Examples: []string{
			"App crashes when opening settings page",
			"Slow performance on dashboard",
			"Mobile app not working properly",
		},
	},
	{
		Title:       "General Support",
		Description: "Product features and general questions",
		Examples: []string{
			"How to use the new dashboard features?",
			"Feature request: Dark mode theme",
			"Where can I find user documentation?",
		},
	},
}

// HomeCatalogue returns a copy of the quick-help cards.
func HomeCatalogue() []HomeCategory {
	out := make([]HomeCategory, len(homeCatalogue))
	for i, c := range homeCatalogue {
		c.Examples = append([]string(nil), c.Examples...)
		out[i] = c
	}
	return out
}
