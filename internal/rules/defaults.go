package rules

// Default returns the compiled-in ruleset, matching the keyword tables and
// field patterns the scanning tool shipped with.
func Default() *Ruleset {
	return &Ruleset{
		Version:         1,
		DefaultCategory: "Uncategorized",
		DefaultCurrency: "INR",
		Categories: []CategoryRule{
			{Name: "Food", Keywords: []string{
				"pizza", "restaurant", "cafe", "coffee", "burger", "biryani",
				"swiggy", "zomato", "food", "bakery", "kitchen",
			}},
			{Name: "Travel", Keywords: []string{
				"uber", "ola", "taxi", "cab", "flight", "airlines", "hotel",
				"fuel", "petrol", "diesel", "toll", "railway", "irctc",
			}},
			{Name: "Shopping", Keywords: []string{
				"amazon", "flipkart", "myntra", "mall", "mart", "store",
				"clothing", "apparel", "electronics",
			}},
			{Name: "Utilities", Keywords: []string{
				"electricity", "water", "broadband", "internet", "recharge",
				"mobile", "gas", "dth", "postpaid", "prepaid",
			}},
			{Name: "Entertainment", Keywords: []string{
				"movie", "cinema", "netflix", "spotify", "prime", "bookmyshow",
			}},
			{Name: "Medical", Keywords: []string{
				"pharmacy", "chemist", "hospital", "clinic", "medicine",
				"diagnostic", "lab",
			}},
		},
		Patterns: Patterns{
			// Ordered by shape specificity. Later patterns sweep up plain
			// digit runs so earlier, better-shaped matches take priority at
			// the same position.
			Amount: []string{
				`(?i)(?:(₹|Rs\.?|INR|\$|€|USD|EUR)\s*)?([0-9]{1,3}(?:,[0-9]{3})+(?:\.[0-9]{2})?)\b`,
				`(?i)(?:(₹|Rs\.?|INR|\$|€|USD|EUR)\s*)?([0-9]+\.[0-9]{2})\b`,
				`(?i)(?:(₹|Rs\.?|INR|\$|€|USD|EUR)\s*)?([0-9]+)\b`,
			},
			// \b keeps "Subtotal" from qualifying as a total line.
			TotalLabel: `(?i)\btotal\b`,
			Date: []string{
				`\b(\d{1,2}[/\- ]\d{1,2}[/\- ]\d{2,4})\b`,
			},
			InvoiceNumber: []string{
				// alternates longest-first: leftmost-first matching would otherwise
				// take "no" inside "Number" and capture the tail of the label
				`(?i)\b(?:invoice|bill|receipt)\b\s*(?:number|num|no)?\.?\s*[:#\-]?\s*([A-Za-z0-9][A-Za-z0-9/-]*)`,
			},
			Vendor: []string{
				`(?im)^\s*(?:from|vendor|company)\s*[:\-]\s*(.+)$`,
			},
		},
	}
}
