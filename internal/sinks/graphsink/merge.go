// Package graphsink consumes the four catalog topics and upserts nodes and
// edges into the graph store, per spec.md §4.B.
package graphsink

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"discogsography/internal/catalog"
	"discogsography/internal/graphdriver"
)

// ReadHash fetches the hash property currently stored on the node keyed by
// (label, id). A missing node returns "", nil — the caller treats that the
// same as a mismatched hash (proceed to write).
func ReadHash(ctx context.Context, d *graphdriver.Driver, label, id string) (string, error) {
	cypher := fmt.Sprintf("MATCH (n:%s {id: $id}) RETURN n.hash AS hash", label)
	result, err := d.WithRetry(ctx, neo4j.AccessModeRead, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, cypher, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		record, err := records.Single(ctx)
		if err != nil {
			return "", nil // no existing node
		}
		hash, _ := record.Get("hash")
		h, _ := hash.(string)
		return h, nil
	})
	if err != nil {
		return "", err
	}
	h, _ := result.(string)
	return h, nil
}

// MergeArtist applies the Artist MERGE policy: set name/profile/real_name,
// MERGE alias nodes and bidirectional :ALIAS_OF edges, MERGE :MEMBER_OF to
// groups, store namevariations as a list property, MERGE :IS to genres and
// styles.
func MergeArtist(ctx context.Context, d *graphdriver.Driver, a catalog.Artist, hash string) error {
	_, err := d.WithRetry(ctx, neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (artist:Artist {id: $id})
			SET artist.name = $name,
			    artist.profile = $profile,
			    artist.real_name = $realName,
			    artist.namevariations = $nameVariations,
			    artist.hash = $hash
		`, map[string]any{
			"id": a.ID, "name": a.Name, "profile": a.Profile,
			"realName": a.RealName, "nameVariations": a.NameVariations, "hash": hash,
		}); err != nil {
			return nil, err
		}

		for _, alias := range a.Aliases {
			if _, err := tx.Run(ctx, `
				MERGE (artist:Artist {id: $id})
				MERGE (alias:Artist {id: $aliasId})
				MERGE (artist)-[:ALIAS_OF]->(alias)
				MERGE (alias)-[:ALIAS_OF]->(artist)
			`, map[string]any{"id": a.ID, "aliasId": alias.ID}); err != nil {
				return nil, err
			}
		}

		for _, group := range a.Groups {
			if _, err := tx.Run(ctx, `
				MERGE (artist:Artist {id: $id})
				MERGE (group:Artist {id: $groupId})
				MERGE (artist)-[:MEMBER_OF]->(group)
			`, map[string]any{"id": a.ID, "groupId": group.ID}); err != nil {
				return nil, err
			}
		}

		if err := mergeGenresAndStyles(ctx, tx, "Artist", a.ID, a.Genres, a.Styles); err != nil {
			return nil, err
		}

		return nil, nil
	})
	return err
}

// MergeLabel applies the Label MERGE policy.
func MergeLabel(ctx context.Context, d *graphdriver.Driver, l catalog.Label, hash string) error {
	_, err := d.WithRetry(ctx, neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (label:Label {id: $id})
			SET label.name = $name,
			    label.profile = $profile,
			    label.contact_info = $contactInfo,
			    label.hash = $hash
		`, map[string]any{
			"id": l.ID, "name": l.Name, "profile": l.Profile,
			"contactInfo": l.ContactInfo, "hash": hash,
		}); err != nil {
			return nil, err
		}

		if l.ParentLabel != nil {
			if _, err := tx.Run(ctx, `
				MERGE (label:Label {id: $id})
				MERGE (parent:Label {id: $parentId})
				MERGE (label)-[:SUBLABEL_OF]->(parent)
			`, map[string]any{"id": l.ID, "parentId": l.ParentLabel.ID}); err != nil {
				return nil, err
			}
		}

		for _, sub := range l.SubLabels {
			if _, err := tx.Run(ctx, `
				MERGE (label:Label {id: $id})
				MERGE (sub:Label {id: $subId})
				MERGE (sub)-[:SUBLABEL_OF]->(label)
			`, map[string]any{"id": l.ID, "subId": sub.ID}); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	return err
}

// MergeMaster applies the Master MERGE policy.
func MergeMaster(ctx context.Context, d *graphdriver.Driver, m catalog.Master, hash string) error {
	_, err := d.WithRetry(ctx, neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (master:Master {id: $id})
			SET master.title = $title,
			    master.year = $year,
			    master.hash = $hash
		`, map[string]any{"id": m.ID, "title": m.Title, "year": m.Year, "hash": hash}); err != nil {
			return nil, err
		}

		for _, artist := range m.Artists {
			if _, err := tx.Run(ctx, `
				MERGE (master:Master {id: $id})
				MERGE (artist:Artist {id: $artistId})
				MERGE (master)-[:BY]->(artist)
			`, map[string]any{"id": m.ID, "artistId": artist.ID}); err != nil {
				return nil, err
			}
		}

		if err := mergeGenresAndStyles(ctx, tx, "Master", m.ID, m.Genres, m.Styles); err != nil {
			return nil, err
		}

		return nil, nil
	})
	return err
}

// MergeRelease applies the Release MERGE policy.
func MergeRelease(ctx context.Context, d *graphdriver.Driver, r catalog.Release, hash string) error {
	_, err := d.WithRetry(ctx, neo4j.AccessModeWrite, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MERGE (release:Release {id: $id})
			SET release.title = $title,
			    release.year = $year,
			    release.country = $country,
			    release.format = $format,
			    release.hash = $hash
		`, map[string]any{
			"id": r.ID, "title": r.Title, "year": r.Year,
			"country": r.Country, "format": r.Format, "hash": hash,
		}); err != nil {
			return nil, err
		}

		for _, artist := range r.Artists {
			if _, err := tx.Run(ctx, `
				MERGE (release:Release {id: $id})
				MERGE (artist:Artist {id: $artistId})
				MERGE (release)-[:BY]->(artist)
			`, map[string]any{"id": r.ID, "artistId": artist.ID}); err != nil {
				return nil, err
			}
		}

		for _, label := range r.Labels {
			if _, err := tx.Run(ctx, `
				MERGE (release:Release {id: $id})
				MERGE (label:Label {id: $labelId})
				MERGE (release)-[:ON]->(label)
			`, map[string]any{"id": r.ID, "labelId": label.ID}); err != nil {
				return nil, err
			}
		}

		if r.MasterID != "" {
			if _, err := tx.Run(ctx, `
				MERGE (release:Release {id: $id})
				MERGE (master:Master {id: $masterId})
				MERGE (release)-[:VERSION_OF]->(master)
			`, map[string]any{"id": r.ID, "masterId": r.MasterID}); err != nil {
				return nil, err
			}
		}

		if err := mergeGenresAndStyles(ctx, tx, "Release", r.ID, r.Genres, r.Styles); err != nil {
			return nil, err
		}

		return nil, nil
	})
	return err
}

// mergeGenresAndStyles MERGEs a :IS edge from (label, id) to each named
// Genre and Style node; genre/style nodes use name as their natural key.
func mergeGenresAndStyles(ctx context.Context, tx neo4j.ManagedTransaction, label, id string, genres, styles []string) error {
	for _, genre := range genres {
		if _, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (n:%s {id: $id})
			MERGE (g:Genre {name: $name})
			MERGE (n)-[:IS]->(g)
		`, label), map[string]any{"id": id, "name": genre}); err != nil {
			return err
		}
	}
	for _, style := range styles {
		if _, err := tx.Run(ctx, fmt.Sprintf(`
			MATCH (n:%s {id: $id})
			MERGE (s:Style {name: $name})
			MERGE (n)-[:IS]->(s)
		`, label), map[string]any{"id": id, "name": style}); err != nil {
			return err
		}
	}
	return nil
}
