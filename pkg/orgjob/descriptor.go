package orgjob

import (
	"bytes"
	_ "embed"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	"github.com/jenkins-x/jx-logging/v3/pkg/log"
	"github.com/pkg/errors"
)

const (
	// NavigatorElement the element of an organisation job which configures the repositories to scan
	NavigatorElement = "org.jenkinsci.plugins.github__branch__source.GitHubSCMNavigator"

	// RepoOwnerElement the navigator child holding the git owner
	RepoOwnerElement = "repoOwner"

	// PatternElement the navigator child holding the pipe separated repository patterns
	PatternElement = "pattern"

	// CredentialsIDElement the navigator child holding the credentials used to scan the owner
	CredentialsIDElement = "credentialsId"

	templateName = "templates/github-org-job.xml"
)

//go:embed templates/github-org-job.xml
var templateXML []byte

// Jenkins writes XML 1.1 declarations which encoding/xml refuses to read
var xml11Declaration = regexp.MustCompile(`^(\s*<\?xml\s+version\s*=\s*)(['"])1\.1(['"])`)

// Fetcher fetches the current descriptor of a job
type Fetcher func() ([]byte, error)

// TemplateLoader loads the default descriptor used when no job exists yet
type TemplateLoader func() (*etree.Document, error)

// Descriptor the organisation job document along with what happened to it
type Descriptor struct {
	Document *etree.Document

	// Created is true if the document came from the template rather than the server
	Created bool

	// Changed is true if the merge modified the owner or the pattern
	Changed bool
}

// Bytes returns the XML of the descriptor
func (d *Descriptor) Bytes() ([]byte, error) {
	data, err := d.Document.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "failed to write the organisation job XML")
	}
	return data, nil
}

// ParseDocument parses the XML document
func ParseDocument(source string, data []byte) (*etree.Document, error) {
	data = xml11Declaration.ReplaceAll(data, []byte("${1}${2}1.0${3}"))
	doc := etree.NewDocument()
	err := doc.ReadFromBytes(bytes.TrimSpace(data))
	if err != nil {
		return nil, &XMLParseError{Source: source, Err: err}
	}
	return doc, nil
}

// LoadTemplate loads the bundled organisation job template
func LoadTemplate() (*etree.Document, error) {
	return ParseDocument(templateName, templateXML)
}

// TemplateWithCredentials returns a loader of the bundled template which scans using the given credentials
func TemplateWithCredentials(credentialsID string) TemplateLoader {
	return func() (*etree.Document, error) {
		doc, err := LoadTemplate()
		if err != nil {
			return nil, err
		}
		if credentialsID == "" {
			return doc, nil
		}
		navigator := FindNavigator(doc)
		if navigator == nil {
			return nil, &TemplateStructureError{Element: NavigatorElement}
		}
		child := navigator.SelectElement(CredentialsIDElement)
		if child == nil {
			child = navigator.CreateElement(CredentialsIDElement)
		}
		child.SetText(credentialsID)
		return doc, nil
	}
}

// EnsureDescriptor fetches the existing descriptor or falls back to the template, then merges the owner and repository into it.
// Failing to fetch or parse the existing descriptor is treated as the job not existing
func EnsureDescriptor(fetch Fetcher, load TemplateLoader, owner, repo string) (*Descriptor, error) {
	var doc *etree.Document
	data, err := fetch()
	if err != nil {
		log.Logger().Warnf("failed to get the organisation job for %s. Probably does not exist? %s", owner, err.Error())
	} else {
		doc, err = ParseDocument("the organisation job "+owner, data)
		if err != nil {
			log.Logger().Warnf("%s", err.Error())
			doc = nil
		}
	}

	answer := &Descriptor{}
	if doc == nil || FindNavigator(doc) == nil {
		answer.Created = true
		doc, err = load()
		if err != nil {
			return nil, errors.Wrap(err, "cannot load the template organisation job")
		}
	}

	answer.Document, answer.Changed, err = Merge(doc, owner, repo)
	if err != nil {
		return nil, err
	}
	if answer.Changed {
		log.Logger().Debugf("updated the organisation job %s for repository %s", owner, repo)
	} else {
		log.Logger().Debugf("the organisation job %s already matches repository %s", owner, repo)
	}
	return answer, nil
}

// Merge sets the owner and appends the repository to the pattern of the navigator.
// It returns the document and whether either value changed
func Merge(doc *etree.Document, owner, repo string) (*etree.Document, bool, error) {
	navigator := FindNavigator(doc)
	if navigator == nil {
		return doc, false, &TemplateStructureError{Element: NavigatorElement}
	}
	repoOwner, err := mandatoryFirstChild(navigator, RepoOwnerElement)
	if err != nil {
		return doc, false, err
	}
	pattern, err := mandatoryFirstChild(navigator, PatternElement)
	if err != nil {
		return doc, false, err
	}

	newPattern := CombineJobPattern(pattern.Text(), repo)
	updated := setElementText(repoOwner, owner)
	if setElementText(pattern, newPattern) {
		updated = true
	}
	return doc, updated, nil
}

// CombineJobPattern appends the repository to the pipe separated pattern.
// Repositories already in the pattern are appended again
func CombineJobPattern(oldPattern, repoName string) string {
	oldPattern = strings.TrimSpace(oldPattern)
	if oldPattern == "" {
		return repoName
	}
	return oldPattern + "|" + repoName
}

// FindNavigator returns the first navigator element below the root of the document, in document order
func FindNavigator(doc *etree.Document) *etree.Element {
	if doc == nil {
		return nil
	}
	root := doc.Root()
	if root == nil {
		return nil
	}
	return findDescendant(root, NavigatorElement)
}

func findDescendant(e *etree.Element, tag string) *etree.Element {
	for _, child := range e.ChildElements() {
		if child.FullTag() == tag {
			return child
		}
		found := findDescendant(child, tag)
		if found != nil {
			return found
		}
	}
	return nil
}

func mandatoryFirstChild(e *etree.Element, name string) (*etree.Element, error) {
	child := e.SelectElement(name)
	if child == nil {
		return nil, &TemplateStructureError{Parent: e.FullTag(), Element: name}
	}
	return child, nil
}

// setElementText updates the text if it differs and returns true if it changed
func setElementText(e *etree.Element, value string) bool {
	if e.Text() == value {
		return false
	}
	e.SetText(value)
	return true
}
