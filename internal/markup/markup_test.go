package markup

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cbassuarez/flux/internal/ir"
	"github.com/cbassuarez/flux/internal/kernel"
	"github.com/cbassuarez/flux/internal/render"
	"github.com/cbassuarez/flux/internal/testutil"
)

func showcaseIR(t *testing.T) *ir.Document {
	t.Helper()
	doc := testutil.Showcase(t)
	s, err := kernel.InitRuntimeState(doc, 0)
	require.NoError(t, err)
	out, err := render.Build(doc, s.Snapshot(), render.Options{})
	require.NoError(t, err)
	return out
}

func TestSlotInnerGolden(t *testing.T) {
	doc := showcaseIR(t)

	var buf bytes.Buffer
	for _, id := range []string{"mood", "step", "clock", "word", "plate"} {
		inner, err := SlotInner(doc.Find(id))
		require.NoError(t, err)
		fmt.Fprintf(&buf, "%s: %s\n", id, inner)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "slot_inner", buf.Bytes())
}

func TestSlotInnerRejectsNonSlot(t *testing.T) {
	_, err := SlotInner(showcaseIR(t).Find("intro"))
	assert.Error(t, err)
}

func TestPageStructure(t *testing.T) {
	doc := showcaseIR(t)
	page, err := Page(doc, WithScript("/* poll */"), WithRootAttr("data-flux-session", "abc"))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(page, []byte("<!DOCTYPE html>")))
	assert.Contains(t, string(page), "@page{size:A4 portrait;margin:20mm}")
	assert.Contains(t, string(page), "/* poll */")

	root, err := Parse(bytes.NewReader(page))
	require.NoError(t, err)

	mood := FindByID(root, "mood")
	require.NotNil(t, mood)
	assert.Equal(t, "span", mood.Data)
	fit, _ := Attr(mood, AttrFit)
	assert.Equal(t, "ellipsis", fit)
	style, _ := Attr(mood, "style")
	assert.Contains(t, style, "width:8ch")
	assert.Contains(t, style, "text-overflow:ellipsis")

	inner := InnerContainer(mood)
	require.NotNil(t, inner)
	assert.Equal(t, "calm", TextContent(inner))

	clock := FindByID(root, "clock")
	require.NotNil(t, clock)
	assert.Equal(t, "div", clock.Data)
	refresh, _ := Attr(clock, AttrRefresh)
	assert.Equal(t, "every(1s)", refresh)

	session := FindByID(root, "intro").Parent
	v, ok := Attr(session, "data-flux-session")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)

	assert.Nil(t, FindByID(root, "missing"))
}

func TestPageMatchesSlotInner(t *testing.T) {
	doc := showcaseIR(t)
	page, err := Page(doc)
	require.NoError(t, err)
	root, err := Parse(bytes.NewReader(page))
	require.NoError(t, err)

	for _, id := range []string{"mood", "clock", "plate"} {
		want, err := SlotInner(doc.Find(id))
		require.NoError(t, err)
		got, err := InnerHTML(InnerContainer(FindByID(root, id)))
		require.NoError(t, err)
		assert.Equal(t, want, got, id)
	}
}

func TestGridCells(t *testing.T) {
	doc := showcaseIR(t)
	el := Node(doc.Find("cells"))

	var buf bytes.Buffer
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		id, _ := Attr(c, AttrCell)
		tags, _ := Attr(c, "data-tags")
		fmt.Fprintf(&buf, "%s[%s]=%s;", id, tags, TextContent(c))
	}
	assert.Equal(t, "s0[lit]=alpha;s1[]=beta;s2[]=gamma;", buf.String())

	img := el.FirstChild.NextSibling.FirstChild
	src, _ := Attr(img, "src")
	assert.Equal(t, "media/plants/fern.png", src)
}

func TestParseFragment(t *testing.T) {
	nodes, err := ParseFragment("<b>x</b>tail", nil)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "b", nodes[0].Data)
	assert.True(t, strings.HasPrefix(nodes[1].Data, "tail"))
}
