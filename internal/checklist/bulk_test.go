package checklist

import (
	"reflect"
	"testing"

	"github.com/nhle/tasktimer/internal/idgen"
)

func TestParseBulk(t *testing.T) {
	type section struct {
		title string
		items []string
	}

	tests := []struct {
		name  string
		input string
		want  []section
	}{
		{
			name:  "two sections, second left open",
			input: "### A\nitem1\nitem2\n---\n### B\nitem3",
			want: []section{
				{"A", []string{"item1", "item2"}},
				{"B", []string{"item3"}},
			},
		},
		{
			name:  "lines outside a section are dropped",
			input: "stray\n### A\nx\n---\nalso stray\n",
			want:  []section{{"A", []string{"x"}}},
		},
		{
			name:  "new header closes the open section",
			input: "### A\nx\n### B\ny\n",
			want: []section{
				{"A", []string{"x"}},
				{"B", []string{"y"}},
			},
		},
		{
			name:  "blank lines and whitespace trimmed",
			input: "   ###   Trim me  \n\n   a  \n\t\n---",
			want:  []section{{"Trim me", []string{"a"}}},
		},
		{
			name:  "empty header gets default title",
			input: "###\nz",
			want:  []section{{DefaultSectionTitle, []string{"z"}}},
		},
		{
			name:  "only the header prefix is stripped",
			input: "#### Sub\nz\n###### Deep",
			want: []section{
				{"# Sub", []string{"z"}},
				{"### Deep", []string{}},
			},
		},
		{
			name:  "empty section is still emitted",
			input: "### Empty\n---",
			want:  []section{{"Empty", []string{}}},
		},
		{
			name:  "nothing parsable",
			input: "a\nb\n---\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseBulk(tt.input, idgen.NewSequence(1))
			if len(got) != len(tt.want) {
				t.Fatalf("got %d sections, want %d", len(got), len(tt.want))
			}
			for i, w := range tt.want {
				if got[i].Title != w.title {
					t.Errorf("section %d title = %q, want %q", i, got[i].Title, w.title)
				}
				if texts := itemTexts(got[i]); !reflect.DeepEqual(texts, w.items) {
					t.Errorf("section %d items = %v, want %v", i, texts, w.items)
				}
			}
		})
	}
}

func TestParseBulk_FreshIDs(t *testing.T) {
	got := ParseBulk("### A\nitem1\nitem2\n---\n### B\nitem3", idgen.NewSequence(1))

	var ids []int64
	for _, s := range got {
		ids = append(ids, s.ID)
		for _, it := range s.Items {
			ids = append(ids, it.ID)
		}
	}
	if want := []int64{1, 2, 3, 4, 5}; !reflect.DeepEqual(ids, want) {
		t.Errorf("ids = %v, want %v", ids, want)
	}
}
