package graphdriver

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"discogsography/pkg/logger"
)

// nodeLabelsWithConstraint are the four catalog labels that carry a
// uniqueness constraint on id, per spec.md §6.
var nodeLabelsWithConstraint = []string{"Artist", "Label", "Master", "Release"}

// fulltextIndexes maps an index name to the (label, property) pair it
// covers, matching the three named indexes the external interfaces
// contract requires.
var fulltextIndexes = []struct {
	name, label, property string
}{
	{"artist_name_fulltext", "Artist", "name"},
	{"release_title_fulltext", "Release", "title"},
	{"label_name_fulltext", "Label", "name"},
}

// Bootstrap idempotently creates the graph schema's uniqueness constraints
// and full-text indexes. It is safe to run on every deploy.
func Bootstrap(ctx context.Context, d *Driver) error {
	log := logger.New("graphdriver").Function("Bootstrap")
	session := d.Session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, label := range nodeLabelsWithConstraint {
		cypher := "CREATE CONSTRAINT IF NOT EXISTS FOR (n:" + label + ") REQUIRE n.id IS UNIQUE"
		if _, err := session.Run(ctx, cypher, nil); err != nil {
			return log.Err("failed to create uniqueness constraint", err, "label", label)
		}
		log.Info("ensured uniqueness constraint", "label", label)
	}

	for _, idx := range fulltextIndexes {
		cypher := "CREATE FULLTEXT INDEX " + idx.name + " IF NOT EXISTS FOR (n:" + idx.label + ") ON EACH [n." + idx.property + "]"
		if _, err := session.Run(ctx, cypher, nil); err != nil {
			return log.Err("failed to create fulltext index", err, "index", idx.name)
		}
		log.Info("ensured fulltext index", "index", idx.name)
	}

	return nil
}
