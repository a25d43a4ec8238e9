// Package parsers provides the format parsers shipped with rdfstream.
package parsers

import (
	"github.com/aleksaelezovic/rdfstream/pkg/dispatch"
	"github.com/aleksaelezovic/rdfstream/pkg/parser"
	"github.com/aleksaelezovic/rdfstream/pkg/source"
)

var documentType = dispatch.TypeOf[*source.Document]()

func acceptsFormat(src any, format source.Format) bool {
	doc, ok := src.(*source.Document)
	return ok && doc.Format == format
}

// Singletons; dispatch keys on parser identity.
var (
	NTriples   = &NTriplesParser{}
	NQuads     = &NQuadsParser{}
	JSONLines  = &JSONLinesParser{}
	Collection = &CollectionParser{}
	StoreScan  = &StoreScanParser{}
)

// RegisterDefaults registers every parser of this package on reg.
func RegisterDefaults(reg *parser.Registry) {
	reg.Register(NTriples)
	reg.Register(NQuads)
	reg.Register(JSONLines)
	reg.Register(Collection)
	reg.Register(StoreScan)
}
