package kv

import (
	"github.com/eigerco/levelkv/pkg/db"
	"github.com/eigerco/levelkv/pkg/db/goleveldb"
	"github.com/eigerco/levelkv/pkg/db/pebble"
)

var engines = map[EngineKind]db.Opener{
	EnginePebble:    pebble.Open,
	EngineGoLevelDB: goleveldb.Open,
}
