package persistence

import (
	"encoding/json"

	"github.com/afoeder/typo3cr/internal/mapper"
)

// Dump renders objects as indented JSON. Each entity is written in full at
// its first occurrence, tagged with "$id"; later occurrences, cycles
// included, become {"$ref": id}. Properties keep their schema order.
func Dump(objects []mapper.Object) ([]byte, error) {
	d := &dumper{ids: make(map[*Entity]int)}
	out := make([]any, 0, len(objects))
	for _, obj := range objects {
		out = append(out, d.value(obj))
	}
	return json.MarshalIndent(out, "", "  ")
}

type dumper struct {
	ids map[*Entity]int
}

func (d *dumper) value(v any) any {
	switch v := v.(type) {
	case *Entity:
		if id, ok := d.ids[v]; ok {
			ref := mapper.NewCollection()
			ref.Set("$ref", id)
			return ref
		}
		id := len(d.ids) + 1
		d.ids[v] = id

		out := mapper.NewCollection()
		out.Set("$id", id)
		out.Set("$class", v.className)
		for _, name := range v.properties.Keys() {
			pv, _ := v.properties.Get(name)
			out.Set(name, d.value(pv))
		}
		return out
	case *mapper.Collection:
		out := mapper.NewCollection()
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			out.Set(k, d.value(item))
		}
		return out
	default:
		return v
	}
}
