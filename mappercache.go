/*
Copyright © 2019 the ViewLink authors.
This file is part of ViewLink.

ViewLink is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ViewLink is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ViewLink.  If not, see <http://www.gnu.org/licenses/>.
*/

package viewlink

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/viewlink/internal/hash"
)

// mapperCacheSize is the number of index mappers a MapperCache keeps.
const mapperCacheSize = 8

// MapperCache memoizes index mappers by the identities of the domains
// they map between. A mapper is rebuilt whenever either identity changes.
type MapperCache struct {
	cache  *requestcache.Cache
	builds int64
}

type mapperRequest struct {
	master, dependent Domain
}

type mapperKey struct {
	Master, Dependent string
}

// NewMapperCache creates an empty mapper cache.
func NewMapperCache() *MapperCache {
	mc := new(MapperCache)
	mc.cache = requestcache.NewCache(func(ctx context.Context, request interface{}) (interface{}, error) {
		r := request.(mapperRequest)
		atomic.AddInt64(&mc.builds, 1)
		return NewIndexMapper(r.master, r.dependent), nil
	}, 1, requestcache.Deduplicate(), requestcache.Memory(mapperCacheSize))
	return mc
}

// Mapper returns the index mapper between master and dependent, building
// it if necessary. It returns nil if either domain is nil.
func (mc *MapperCache) Mapper(master, dependent Domain) *IndexMapper {
	if master == nil || dependent == nil {
		return nil
	}
	key := hash.Hash(mapperKey{Master: master.ID(), Dependent: dependent.ID()})
	req := mc.cache.NewRequest(context.Background(), mapperRequest{master: master, dependent: dependent}, key)
	result, err := req.Result()
	if err != nil {
		panic(fmt.Errorf("viewlink: building index mapper: %v", err))
	}
	return result.(*IndexMapper)
}

// Builds returns the number of mappers built so far.
func (mc *MapperCache) Builds() int {
	return int(atomic.LoadInt64(&mc.builds))
}
