package pdfs

import "sort"

// TemplateStore is a keyed store of templates.
// Fill it before sharing; it is not guarded for concurrent writes
type TemplateStore[T any] struct {
	templates map[string]T
}

func NewTemplateStore[T any]() *TemplateStore[T] {
	return &TemplateStore[T]{templates: make(map[string]T)}
}

func (s *TemplateStore[T]) Store(key string, template T) {
	s.templates[key] = template
}

func (s *TemplateStore[T]) Get(key string) (T, bool) {
	t, ok := s.templates[key]
	return t, ok
}

func (s *TemplateStore[T]) Remove(key string) {
	delete(s.templates, key)
}

func (s *TemplateStore[T]) Keys() []string {
	keys := make([]string, 0, len(s.templates))
	for k := range s.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *TemplateStore[T]) Len() int {
	return len(s.templates)
}
