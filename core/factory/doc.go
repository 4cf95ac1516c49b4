// Package factory instantiates pluggable modules (metrics sinks, event
// stores) from configuration. A module is selected by a type string and
// receives its raw settings as a map, which the factory decodes into a typed
// struct with Decode.
//
//	reg := factory.NewRegistry[eventstore.Store]()
//	_ = reg.Register("jsonl", func(conf map[string]any) (eventstore.Store, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return eventstore.NewJSONLStore(c.Path)
//	})
package factory
