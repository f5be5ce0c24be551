package app

import (
	"github.com/specialistvlad/pipegrid/internal/registry"
	"github.com/specialistvlad/pipegrid/modules/aggregate"
	"github.com/specialistvlad/pipegrid/modules/csvfile"
	"github.com/specialistvlad/pipegrid/modules/httpcsv"
	"github.com/specialistvlad/pipegrid/modules/join"
	"github.com/specialistvlad/pipegrid/modules/passthrough"
	"github.com/specialistvlad/pipegrid/modules/print"
	"github.com/specialistvlad/pipegrid/modules/socketio"
	"github.com/specialistvlad/pipegrid/modules/sqlite"
	"github.com/specialistvlad/pipegrid/modules/transform"
)

// coreModules is the definitive list of all modules that are compiled into
// the pipegrid binary.
var coreModules = []registry.Module{
	&passthrough.Module{},
	&csvfile.Module{},
	&transform.Module{},
	&join.Module{},
	&aggregate.Module{},
	&print.Module{},
	&httpcsv.Module{},
	&socketio.Module{},
	&sqlite.Module{},
}

// CoreModules returns the modules compiled into the binary.
func CoreModules() []registry.Module {
	return append([]registry.Module(nil), coreModules...)
}
