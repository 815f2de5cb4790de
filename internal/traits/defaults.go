package traits

import "sync"

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// DefaultTable returns the built-in trait table. The same instance is shared
// by every caller; it is safe for concurrent reads.
func DefaultTable() *Table {
	defaultOnce.Do(func() {
		t, err := NewTable(defaultEntries())
		if err != nil {
			panic("traits: invalid built-in table: " + err.Error())
		}
		defaultTable = t
	})
	return defaultTable
}

func defaultEntries() map[string]Entry {
	return map[string]Entry{
		// Social & Streaming
		"youtube.com":      {Extrovert, PrivacyMedium, Social, 2},
		"netflix.com":      {Extrovert, PrivacyMedium, Social, 2},
		"facebook.com":     {Extrovert, PrivacyLow, Social, 3},
		"instagram.com":    {Extrovert, PrivacyLow, Social, 3},
		"web.whatsapp.com": {Extrovert, PrivacyMedium, Social, 3},
		"twitter.com":      {Extrovert, PrivacyLow, Social, 2},
		"snapchat.com":     {Extrovert, PrivacyLow, Social, 2},
		"pinterest.com":    {Ambivert, PrivacyMedium, Social, 1},
		"reddit.com":       {Ambivert, PrivacyLow, Social, 2},

		// Education
		"vtucircle.com": {Extrovert, PrivacyMedium, Education, 2},

		// AI assistants & Developer
		"chatgpt.com":       {Ambivert, PrivacyMedium, Tech, 2},
		"gemini.google.com": {Ambivert, PrivacyMedium, Tech, 2},
		"chat.deepseek.com": {Ambivert, PrivacyMedium, Tech, 2},
		"github.com":        {Introvert, PrivacyHigh, Tech, 3},
		"stackoverflow.com": {Introvert, PrivacyMedium, Tech, 2},

		// Professional & Careers
		"canva.com":     {Extrovert, PrivacyMedium, Professional, 3},
		"figma.com":     {Ambivert, PrivacyMedium, Professional, 3},
		"linkedin.com":  {Ambivert, PrivacyMedium, Professional, 2},
		"in.indeed.com": {Ambivert, PrivacyMedium, Professional, 2},
		"naukri.com":    {Ambivert, PrivacyMedium, Professional, 2},
		"leetcode.com":  {Ambivert, PrivacyMedium, Professional, 2},
		"medium.com":    {Ambivert, PrivacyMedium, Professional, 2},
		"quora.com":     {Ambivert, PrivacyMedium, Professional, 2},

		// Shopping & Delivery
		"amazon.in":    {Extrovert, PrivacyMedium, Shopping, 3},
		"zepto.app":    {Ambivert, PrivacyLow, Shopping, 2},
		"flipkart.com": {Ambivert, PrivacyLow, Shopping, 2},
		"zomato.com":   {Ambivert, PrivacyLow, Shopping, 2},

		// Travel
		"irctc.co.in": {Ambivert, PrivacyMedium, Travel, 2},
		"goindigo.in": {Ambivert, PrivacyMedium, Travel, 2},

		// Search & Mail
		"google.com":      {Introvert, PrivacyHigh, Privacy, 3},
		"duckduckgo.com":  {Introvert, PrivacyHigh, Privacy, 3},
		"mail.google.com": {Introvert, PrivacyHigh, Privacy, 3},
	}
}
