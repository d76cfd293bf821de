package mapper

import (
	"github.com/strata-db/strata/internal/annotation"
)

// fakeSource is an in-memory AnnotationSource. Annotations are given in
// their textual form and run through the real annotation parser, so records
// match what the scanner would produce.
type fakeSource struct {
	anns     map[string][]string
	props    map[string][]string
	propAnns map[string]map[string][]string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		anns:     make(map[string][]string),
		props:    make(map[string][]string),
		propAnns: make(map[string]map[string][]string),
	}
}

func (s *fakeSource) class(name string, anns ...string) *fakeSource {
	s.anns[name] = anns
	return s
}

func (s *fakeSource) property(class, name string, anns ...string) *fakeSource {
	s.props[class] = append(s.props[class], name)
	if s.propAnns[class] == nil {
		s.propAnns[class] = make(map[string][]string)
	}
	s.propAnns[class][name] = anns
	return s
}

func (s *fakeSource) ClassAnnotations(class string) ([]annotation.Annotation, error) {
	return parseAllAnnotations(s.anns[class])
}

func (s *fakeSource) ClassAnnotation(class string, kind annotation.Kind) (annotation.Annotation, bool, error) {
	anns, err := parseAllAnnotations(s.anns[class])
	if err != nil {
		return nil, false, err
	}
	for _, ann := range anns {
		if ann.Kind() == kind {
			return ann, true, nil
		}
	}
	return nil, false, nil
}

func (s *fakeSource) Properties(class string) ([]string, error) {
	return s.props[class], nil
}

func (s *fakeSource) PropertyAnnotations(class, property string) ([]annotation.Annotation, error) {
	return parseAllAnnotations(s.propAnns[class][property])
}

func parseAllAnnotations(sources []string) ([]annotation.Annotation, error) {
	anns := make([]annotation.Annotation, 0, len(sources))
	for _, src := range sources {
		ann, err := annotation.Parse(src)
		if err != nil {
			return nil, err
		}
		anns = append(anns, ann)
	}
	return anns, nil
}

// fakeFinder is a canned ClassFinder recording the path it was asked for.
type fakeFinder struct {
	classes  []string
	err      error
	lastPath string
}

func (f *fakeFinder) FindClasses(rootPath string) ([]string, error) {
	f.lastPath = rootPath
	if f.err != nil {
		return nil, f.err
	}
	return f.classes, nil
}

// blogSource assembles the fixture most tests share: a small blog domain
// with scalar attributes, every column-producing relation kind, and an
// embeddable value class.
func blogSource() *fakeSource {
	s := newFakeSource()

	s.class("myapp/models.User", "entity", "timestamps")
	s.property("myapp/models.User", "ID", "integer(primary, autoIncrement, unsigned)")
	s.property("myapp/models.User", "Name", "string(length=100)")
	s.property("myapp/models.User", "Posts", "hasMany(related=myapp/models.Post)")

	s.class("myapp/models.Post", "entity", "softDeletes", "timestamps")
	s.property("myapp/models.Post", "ID", "integer(primary, autoIncrement, unsigned)")
	s.property("myapp/models.Post", "Title", "string(length=200, index)")
	s.property("myapp/models.Post", "Body", "text(nullable)")
	s.property("myapp/models.Post", "Author", "belongsTo(related=myapp/models.User)")
	s.property("myapp/models.Post", "Tags", "belongsToMany(related=myapp/models.Tag)")

	s.class("myapp/models.Tag", "entity")
	s.property("myapp/models.Tag", "ID", "integer(primary, autoIncrement, unsigned)")
	s.property("myapp/models.Tag", "Label", "string(length=50, unique)")

	s.class("myapp/models.Comment", "entity")
	s.property("myapp/models.Comment", "ID", "integer(primary, autoIncrement, unsigned)")
	s.property("myapp/models.Comment", "Body", "text")
	s.property("myapp/models.Comment", "Commentable", "morphTo")

	s.class("myapp/models.Address", "embeddable")
	s.property("myapp/models.Address", "Street", "string(length=200)")
	s.property("myapp/models.Address", "City", "string(length=100)")

	return s
}

func newTestBuilder(source AnnotationSource) *Builder {
	return NewBuilder(Config{
		RootNamespace: "myapp/models",
		SourceRoot:    "./models",
		Source:        source,
	})
}

func buildClasses(source AnnotationSource, classes ...string) (*Mapping, error) {
	return newTestBuilder(source).Build(classes)
}

var blogClasses = []string{
	"myapp/models.User",
	"myapp/models.Post",
	"myapp/models.Tag",
	"myapp/models.Comment",
	"myapp/models.Address",
}
