package nats

import (
	"github.com/nats-io/nats.go/micro"

	ctxmemgem "github.com/RKBobe/CtxMemGem"
)

func AddEndpoints(group micro.Group, endpoints ctxmemgem.EndpointSet) {
	group.AddEndpoint("ingest", IngestRepositoryHandler(endpoints.IngestRepository))
	group.AddEndpoint("context", RetrieveContextHandler(endpoints.RetrieveContext))
	group.AddEndpoint("ask", AskHandler(endpoints.Ask))
	group.AddEndpoint("collections", ListCollectionsHandler(endpoints.ListCollections))
}
