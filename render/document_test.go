package render

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectScriptIsIdempotent(t *testing.T) {
	doc := NewDocument()

	assert.True(t, doc.InjectScript("https://a.example.com/tag.js", map[string]string{"data-zone": "1"}))
	assert.False(t, doc.InjectScript("https://a.example.com/tag.js", nil))
	assert.True(t, doc.HasScript("https://a.example.com/tag.js"))
	assert.False(t, doc.HasScript("https://b.example.com/tag.js"))

	view := doc.View()
	require.Len(t, view.Scripts, 1)
	assert.Equal(t, "1", view.Scripts[0].Attrs["data-zone"])
}

func TestMountInlineReplacesContainer(t *testing.T) {
	doc := NewDocument()
	doc.MountInline(Inline{ContainerID: "slot", HTML: "<b>one</b>"})
	doc.MountInline(Inline{ContainerID: "other", HTML: "<i>x</i>"})
	doc.MountInline(Inline{ContainerID: "slot", HTML: "<b>two</b>"})

	view := doc.View()
	require.Len(t, view.Inlines, 2)
	assert.Equal(t, "<b>two</b>", view.Inlines[0].HTML)
}

func TestResetKeepsScripts(t *testing.T) {
	doc := NewDocument()
	doc.InjectScript("https://a.example.com/tag.js", nil)
	doc.MountInline(Inline{ContainerID: "slot", HTML: "x"})
	doc.BindClickRedirect("https://ads.example.com/click")

	doc.Reset()

	view := doc.View()
	assert.Len(t, view.Scripts, 1)
	assert.Empty(t, view.Inlines)
	assert.Nil(t, view.ClickRedirect)
}

func TestViewIsACopy(t *testing.T) {
	attrs := map[string]string{"async": "true"}
	doc := NewDocument()
	doc.InjectScript("s.js", attrs)
	doc.BindClickRedirect("https://ads.example.com/click")
	attrs["async"] = "false"

	view := doc.View()
	view.Scripts[0].Attrs["async"] = "mutated"
	view.ClickRedirect.URL = "mutated"

	again := doc.View()
	assert.Equal(t, "true", again.Scripts[0].Attrs["async"])
	assert.Equal(t, "https://ads.example.com/click", again.ClickRedirect.URL)
}

func TestConcurrentInjection(t *testing.T) {
	doc := NewDocument()
	var wg sync.WaitGroup
	added := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			added <- doc.InjectScript("same.js", nil)
		}()
	}
	wg.Wait()
	close(added)

	count := 0
	for ok := range added {
		if ok {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, doc.View().Scripts, 1)
}
