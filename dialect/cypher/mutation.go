package cypher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/syssam/neogm"
	"github.com/syssam/neogm/codec"
	"github.com/syssam/neogm/schema"
)

// Mutation queries run in order inside one transaction: the entity first,
// then its satellites. Property order inside each query is sorted by name
// so the same entity always compiles to the same text.

// CreateNode compiles the queries creating a node and its satellites.
func CreateNode(info *codec.EntityInfo) ([]Query, error) {
	if !validIdentifier(info.Label) {
		return nil, &neogm.NamingError{Token: info.Label, Msg: "illegal node label"}
	}
	qs := []Query{createEntityQuery(fmt.Sprintf("CREATE (n:%s {%%s})", info.Label), info)}
	sat, err := createSatelliteQueries(info)
	if err != nil {
		return nil, err
	}
	return append(qs, sat...), nil
}

// UpdateNode compiles the queries rewriting a node in place. Satellites
// are dropped and recreated rather than diffed.
func UpdateNode(info *codec.EntityInfo) ([]Query, error) {
	if !validIdentifier(info.Label) {
		return nil, &neogm.NamingError{Token: info.Label, Msg: "illegal node label"}
	}
	qs := []Query{
		setPropertiesQuery(fmt.Sprintf("MATCH (n:%s {id: $id})", info.Label), "n", info),
		dropSatellitesQuery(info.ID),
	}
	sat, err := createSatelliteQueries(info)
	if err != nil {
		return nil, err
	}
	return append(qs, sat...), nil
}

// DeleteNode compiles the queries removing a node and its satellites.
func DeleteNode(id string) []Query {
	return []Query{
		dropSatellitesQuery(id),
		{
			Text:   "MATCH (n {id: $id})\nDETACH DELETE n",
			Params: map[string]any{"id": id},
		},
	}
}

// CreateRelationship compiles the query creating a relationship between
// two existing nodes.
func CreateRelationship(info *codec.EntityInfo) ([]Query, error) {
	if !schema.ValidToken(info.Label) || schema.IsPrivateToken(info.Label) {
		return nil, &neogm.NamingError{Token: info.Label, Msg: "illegal relationship type name"}
	}
	props, params := entityProperties(info)
	params["start_id"] = info.StartID
	params["end_id"] = info.EndID
	text := strings.Join([]string{
		"MATCH (start {id: $start_id})",
		"MATCH (end {id: $end_id})",
		fmt.Sprintf("CREATE (start)-[r:%s {%s}]->(end)", info.Label, props),
	}, "\n")
	return []Query{{Text: text, Params: params}}, nil
}

// UpdateRelationship compiles the query rewriting a relationship's
// properties. Endpoints are immutable; reattaching means delete and
// recreate.
func UpdateRelationship(info *codec.EntityInfo) ([]Query, error) {
	if !schema.ValidToken(info.Label) || schema.IsPrivateToken(info.Label) {
		return nil, &neogm.NamingError{Token: info.Label, Msg: "illegal relationship type name"}
	}
	return []Query{
		setPropertiesQuery(fmt.Sprintf("MATCH ()-[r:%s {id: $id}]->()", info.Label), "r", info),
	}, nil
}

// DeleteRelationship compiles the query removing a relationship.
func DeleteRelationship(id string) []Query {
	return []Query{{
		Text:   "MATCH ()-[r {id: $id}]->()\nDELETE r",
		Params: map[string]any{"id": id},
	}}
}

// entityProperties renders `k: $k` pairs for the entity's direct and
// embedded properties, sorted by name, and fills the parameter map.
func entityProperties(info *codec.EntityInfo) (string, map[string]any) {
	params := map[string]any{"id": info.ID}
	names := make([]string, 0, len(info.Props)+len(info.Embedded))
	for k, v := range info.Props {
		names = append(names, k)
		params[k] = v
	}
	for k, v := range info.Embedded {
		names = append(names, k)
		params[k] = v
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names)+1)
	pairs = append(pairs, "id: $id")
	for _, k := range names {
		pairs = append(pairs, fmt.Sprintf("%s: $%s", k, k))
	}
	return strings.Join(pairs, ", "), params
}

func createEntityQuery(pattern string, info *codec.EntityInfo) Query {
	props, params := entityProperties(info)
	return Query{Text: fmt.Sprintf(pattern, props), Params: params}
}

func setPropertiesQuery(match, alias string, info *codec.EntityInfo) Query {
	params := map[string]any{"id": info.ID}
	names := make([]string, 0, len(info.Props)+len(info.Embedded))
	for k, v := range info.Props {
		names = append(names, k)
		params[k] = v
	}
	for k, v := range info.Embedded {
		names = append(names, k)
		params[k] = v
	}
	sort.Strings(names)
	sets := make([]string, len(names))
	for i, k := range names {
		sets[i] = fmt.Sprintf("%s.%s = $%s", alias, k, k)
	}
	if len(sets) == 0 {
		// Nothing beyond the identity; matching alone is a no-op.
		return Query{Text: match, Params: params}
	}
	return Query{Text: match + "\nSET " + strings.Join(sets, ", "), Params: params}
}

// dropSatellitesQuery removes every satellite hanging off the private
// storage relationships of one entity.
func dropSatellitesQuery(id string) Query {
	return Query{
		Text: strings.Join([]string{
			"MATCH (n {id: $id})-[pr]->(cp)",
			fmt.Sprintf("WHERE type(pr) STARTS WITH '%s'", schema.PropertyTokenPrefix),
			"DELETE pr, cp",
		}, "\n"),
		Params: map[string]any{"id": id},
	}
}

func createSatelliteQueries(info *codec.EntityInfo) ([]Query, error) {
	var qs []Query
	for _, rel := range info.Related {
		if !schema.ValidToken(rel.Token) {
			return nil, &neogm.NamingError{Token: rel.Token, Msg: "illegal relationship token"}
		}
		if !validIdentifier(rel.Target.Label) {
			return nil, &neogm.NamingError{Token: rel.Target.Label, Msg: "illegal node label"}
		}
		props, params := entityProperties(&rel.Target)
		params["parent_id"] = info.ID
		relProps := ""
		if rel.Ordinal >= 0 {
			relProps = fmt.Sprintf(" {%s: $%s}", schema.OrdinalProperty, schema.OrdinalProperty)
			params[schema.OrdinalProperty] = rel.Ordinal
		}
		text := strings.Join([]string{
			"MATCH (parent {id: $parent_id})",
			fmt.Sprintf("CREATE (cp:%s {%s})", rel.Target.Label, props),
			fmt.Sprintf("CREATE (parent)-[pr:%s%s]->(cp)", rel.Token, relProps),
		}, "\n")
		qs = append(qs, Query{Text: text, Params: params})
	}
	return qs, nil
}
