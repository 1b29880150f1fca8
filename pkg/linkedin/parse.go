package linkedin

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/codeGROOVE-dev/prospector/pkg/htmlutil"
	"github.com/codeGROOVE-dev/prospector/pkg/profile"
)

var (
	codeBlockRE   = regexp.MustCompile(`(?s)<code[^>]*>(.*?)</code>`)
	publicIdentRE = regexp.MustCompile(`"publicIdentifier"\s*:\s*"([^"]+)"`)
	companyURNRE  = regexp.MustCompile(`"entityUrn"\s*:\s*"[^"]*company[^"]*"[^}]*"name"\s*:\s*"([^"]+)"`)
	localNameRE   = regexp.MustCompile(`"defaultLocalizedNameWithoutCountryName"\s*:\s*"([^"]{5,})"`)
	localFullRE   = regexp.MustCompile(`"defaultLocalizedName"\s*:\s*"([^"]{10,})"`)
	followersRE   = regexp.MustCompile(`"followerCount"\s*:\s*(\d+)`)
	jsonFieldREs  = map[string]*regexp.Regexp{}
)

func init() {
	for _, f := range []string{"firstName", "lastName", "headline", "occupation", "geoLocationName", "companyName", "summary"} {
		jsonFieldREs[f] = regexp.MustCompile(fmt.Sprintf(`%q\s*:\s*"((?:[^"\\]|\\.)*)"`, f))
	}
}

var notFoundTitles = []string{"page not found", "404", "member not found", "profile not found"}

var notFoundBodies = []string{
	"this profile is not available",
	"account has been restricted",
	"page doesn't exist",
	"member you are trying to view",
}

// isValidProfilePage rejects the SPA shell LinkedIn serves to logged-out clients.
func isValidProfilePage(body []byte) bool {
	hasGenericTitle := bytes.Contains(body, []byte("<title>LinkedIn</title>"))
	hasProfileData := bytes.Contains(body, []byte("fsd_profile:")) ||
		bytes.Contains(body, []byte(`"publicIdentifier"`)) ||
		bytes.Contains(body, []byte(`"firstName"`))
	return hasProfileData || !hasGenericTitle
}

type profileData struct {
	name      string
	headline  string
	location  string
	employer  string
	summary   string
	followers int
}

// parseProfile reads the embedded JSON blocks of a member page, preferring the block
// for targetID, and falls back to meta tags.
func (c *Client) parseProfile(content, targetID string) (profile.RawProfile, error) {
	p := c.EmptyProfile()
	p.Username = targetID
	p.ProfileURL = c.base + "/in/" + targetID

	title := strings.ToLower(htmlutil.Title(content))
	for _, pat := range notFoundTitles {
		if strings.Contains(title, pat) {
			return p, profile.ErrProfileNotFound
		}
	}
	lower := strings.ToLower(content)
	for _, pat := range notFoundBodies {
		if strings.Contains(lower, pat) {
			return p, profile.ErrProfileNotFound
		}
	}

	var blocks []string
	for _, m := range codeBlockRE.FindAllStringSubmatch(content, -1) {
		blocks = append(blocks, html.UnescapeString(m[1]))
	}
	all := strings.Join(blocks, "\n")

	var data, fallback profileData
	var actualID string
	for _, code := range blocks {
		if !strings.Contains(code, `"publicIdentifier":`) {
			continue
		}
		if strings.Contains(code, fmt.Sprintf(`"publicIdentifier":%q`, targetID)) {
			if d := extractProfileData(profileSection(code, targetID)); d.name != "" {
				data, actualID = d, targetID
				break
			}
		}
		if fallback.name == "" {
			if d := extractProfileData(code); d.name != "" {
				fallback = d
				if m := publicIdentRE.FindStringSubmatch(code); m != nil {
					actualID = m[1]
				}
			}
		}
	}
	if data.name == "" {
		data = fallback
	}

	p.Name = data.name
	p.Headline = data.headline
	p.Bio = data.summary
	p.Location = data.location
	p.Followers = data.followers
	p.Company = data.employer
	if p.Company == "" {
		p.Company = parseCompanyFromHeadline(data.headline)
	}
	if p.Location == "" {
		if m := localNameRE.FindStringSubmatch(all); m != nil {
			p.Location = unescapeJSON(m[1])
		} else if m := localFullRE.FindStringSubmatch(all); m != nil {
			p.Location = unescapeJSON(m[1])
		}
	}

	if p.Name == "" {
		p.Name = titleSuffix.ReplaceAllString(htmlutil.Title(content), "")
	}
	if p.Bio == "" {
		p.Bio = htmlutil.Description(content)
	}
	if p.Name == "" {
		return p, fmt.Errorf("no profile name in page for %s", targetID)
	}
	// A redirect to another member (usually the logged-in user) is reported under the
	// identifier that was actually served.
	if actualID != "" && !strings.EqualFold(actualID, targetID) {
		p.Username = actualID
		p.ProfileURL = c.base + "/in/" + actualID
	}
	return p, nil
}

func extractProfileData(section string) profileData {
	var d profileData
	first, last := jsonField(section, "firstName"), jsonField(section, "lastName")
	if first != "" {
		d.name = strings.TrimSpace(first + " " + last)
	}
	d.headline = jsonField(section, "headline")
	if d.headline == "" {
		d.headline = jsonField(section, "occupation")
	}
	d.location = jsonField(section, "geoLocationName")
	d.summary = jsonField(section, "summary")
	if m := companyURNRE.FindStringSubmatch(section); m != nil {
		d.employer = unescapeJSON(m[1])
	} else {
		d.employer = jsonField(section, "companyName")
	}
	if m := followersRE.FindStringSubmatch(section); m != nil {
		d.followers, _ = strconv.Atoi(m[1]) //nolint:errcheck // digits only
	}
	return d
}

func jsonField(s, field string) string {
	if m := jsonFieldREs[field].FindStringSubmatch(s); m != nil {
		return unescapeJSON(m[1])
	}
	return ""
}

// profileSection narrows a block to the text around targetID's identifier.
func profileSection(s, id string) string {
	idx := strings.Index(s, fmt.Sprintf(`"publicIdentifier":%q`, id))
	if idx == -1 {
		return s
	}
	return s[max(0, idx-5000):min(len(s), idx+5000)]
}

// parseCompanyFromHeadline reads "Role at Company" and "Role @ Company" headlines.
func parseCompanyFromHeadline(headline string) string {
	var company string
	switch {
	case strings.Contains(headline, " at "):
		company = headline[strings.Index(headline, " at ")+4:]
	case strings.Contains(headline, " @ "):
		company = headline[strings.Index(headline, " @ ")+3:]
	case strings.Contains(headline, "@"):
		company = headline[strings.Index(headline, "@")+1:]
	default:
		// Comma lists are skills, not "Title, Company".
		return ""
	}
	company = strings.TrimSpace(company)
	if i := strings.IndexAny(company, ",;|"); i != -1 {
		company = strings.TrimSpace(company[:i])
	}
	return company
}

func unescapeJSON(s string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+s+`"`), &out); err != nil {
		return s
	}
	return out
}
