package orgjob_test

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/jenkins-x-plugins/jx-ci-setup/pkg/orgjob"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineJobPattern(t *testing.T) {
	testCases := []struct {
		old      string
		repo     string
		expected string
	}{
		{old: "", repo: "widgets", expected: "widgets"},
		{old: "   ", repo: "widgets", expected: "widgets"},
		{old: "\n\t", repo: "widgets", expected: "widgets"},
		{old: "widgets", repo: "gadgets", expected: "widgets|gadgets"},
		{old: " widgets|gadgets ", repo: "gizmos", expected: "widgets|gadgets|gizmos"},
		{old: "widgets", repo: "widgets", expected: "widgets|widgets"},
	}

	for _, tc := range testCases {
		actual := orgjob.CombineJobPattern(tc.old, tc.repo)
		assert.Equal(t, tc.expected, actual, "combining %q with %q", tc.old, tc.repo)
	}
}

func TestEnsureDescriptorUsesTemplateWhenMissing(t *testing.T) {
	fetch := func() ([]byte, error) {
		return nil, errors.Errorf("404 Not Found")
	}

	d, err := orgjob.EnsureDescriptor(fetch, orgjob.LoadTemplate, "acme", "widgets")
	require.NoError(t, err)

	assert.True(t, d.Created, "should be created from the template")
	assert.True(t, d.Changed, "should have changed the template")
	assertNavigator(t, d.Document, "acme", "widgets")
}

func TestEnsureDescriptorMergesExisting(t *testing.T) {
	fetch := loadFile(t, "existing-job.xml")

	d, err := orgjob.EnsureDescriptor(fetch, failingTemplate(t), "acme", "gadgets")
	require.NoError(t, err)

	assert.False(t, d.Created, "should reuse the existing job")
	assert.True(t, d.Changed)
	assertNavigator(t, d.Document, "acme", "widgets|gadgets")

	data, err := d.Bytes()
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "<description>existing job</description>", "should keep unrelated content")
	assert.Contains(t, text, "<credentialsId>custom-creds</credentialsId>", "should keep unrelated content")
	assert.Contains(t, text, "<scriptPath>Jenkinsfile</scriptPath>", "should keep unrelated content")
}

func TestEnsureDescriptorRepeatedMergeDuplicates(t *testing.T) {
	fetch := loadFile(t, "existing-job.xml")

	d, err := orgjob.EnsureDescriptor(fetch, failingTemplate(t), "acme", "widgets")
	require.NoError(t, err)

	assert.False(t, d.Created)
	assert.True(t, d.Changed)
	assertNavigator(t, d.Document, "acme", "widgets|widgets")
}

func TestEnsureDescriptorFallsBackWithoutNavigator(t *testing.T) {
	fetch := loadFile(t, "no-navigator.xml")

	d, err := orgjob.EnsureDescriptor(fetch, orgjob.LoadTemplate, "acme", "widgets")
	require.NoError(t, err)

	assert.True(t, d.Created, "should fall back to the template")
	assertNavigator(t, d.Document, "acme", "widgets")
}

func TestEnsureDescriptorTreatsGarbageAsMissing(t *testing.T) {
	fetch := func() ([]byte, error) {
		return []byte("<html><body>Jenkins is starting"), nil
	}

	d, err := orgjob.EnsureDescriptor(fetch, orgjob.LoadTemplate, "acme", "widgets")
	require.NoError(t, err)

	assert.True(t, d.Created)
	assertNavigator(t, d.Document, "acme", "widgets")
}

func TestEnsureDescriptorMissingPattern(t *testing.T) {
	fetch := loadFile(t, "missing-pattern.xml")

	_, err := orgjob.EnsureDescriptor(fetch, failingTemplate(t), "acme", "widgets")
	require.Error(t, err)

	var structureErr *orgjob.TemplateStructureError
	require.True(t, errors.As(err, &structureErr), "expected TemplateStructureError but got %v", err)
	assert.Equal(t, orgjob.PatternElement, structureErr.Element)
	assert.Equal(t, orgjob.NavigatorElement, structureErr.Parent)
}

func TestMergeUnchanged(t *testing.T) {
	doc := etree.NewDocument()
	root := doc.CreateElement("jenkins.branch.OrganizationFolder")
	navigator := root.CreateElement("navigators").CreateElement(orgjob.NavigatorElement)
	navigator.CreateElement(orgjob.RepoOwnerElement).SetText("acme")
	navigator.CreateElement(orgjob.PatternElement)

	_, changed, err := orgjob.Merge(doc, "acme", "")
	require.NoError(t, err)
	assert.False(t, changed, "owner and pattern already match")

	_, changed, err = orgjob.Merge(doc, "other", "")
	require.NoError(t, err)
	assert.True(t, changed, "owner is overwritten")
	assertNavigator(t, doc, "other", "")
}

func TestMergeMissingNavigator(t *testing.T) {
	doc := etree.NewDocument()
	doc.CreateElement("project")

	_, _, err := orgjob.Merge(doc, "acme", "widgets")

	var structureErr *orgjob.TemplateStructureError
	require.True(t, errors.As(err, &structureErr), "expected TemplateStructureError but got %v", err)
	assert.Equal(t, orgjob.NavigatorElement, structureErr.Element)
}

func TestTemplateWithCredentials(t *testing.T) {
	doc, err := orgjob.TemplateWithCredentials("my-creds")()
	require.NoError(t, err)

	navigator := orgjob.FindNavigator(doc)
	require.NotNil(t, navigator)
	assert.Equal(t, "my-creds", navigator.SelectElement(orgjob.CredentialsIDElement).Text())
}

func TestParseDocumentXML11(t *testing.T) {
	data, err := ioutil.ReadFile(filepath.Join("test_data", "existing-job.xml"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "<?xml version='1.1'"))

	doc, err := orgjob.ParseDocument("existing-job.xml", data)
	require.NoError(t, err)
	assert.NotNil(t, orgjob.FindNavigator(doc))
}

func assertNavigator(t *testing.T, doc *etree.Document, owner, pattern string) {
	navigator := orgjob.FindNavigator(doc)
	require.NotNil(t, navigator, "no navigator element")

	repoOwner := navigator.SelectElement(orgjob.RepoOwnerElement)
	require.NotNil(t, repoOwner, "no repoOwner element")
	assert.Equal(t, owner, repoOwner.Text(), "repoOwner")

	p := navigator.SelectElement(orgjob.PatternElement)
	require.NotNil(t, p, "no pattern element")
	assert.Equal(t, pattern, p.Text(), "pattern")
}

func loadFile(t *testing.T, name string) orgjob.Fetcher {
	return func() ([]byte, error) {
		path := filepath.Join("test_data", name)
		data, err := ioutil.ReadFile(path)
		require.NoError(t, err, "failed to load %s", path)
		return data, nil
	}
}

func failingTemplate(t *testing.T) orgjob.TemplateLoader {
	return func() (*etree.Document, error) {
		t.Fatalf("should not have loaded the template")
		return nil, nil
	}
}
