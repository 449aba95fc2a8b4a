package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	sampleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PositionSample",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"entity_id":       &graphql.Field{Type: graphql.String},
			"latitude":        &graphql.Field{Type: graphql.Float},
			"longitude":       &graphql.Field{Type: graphql.Float},
			"altitude":        &graphql.Field{Type: graphql.Float},
			"accuracy_meters": &graphql.Field{Type: graphql.Float},
			"captured_at":     &graphql.Field{Type: graphql.String},
			"received_at":     &graphql.Field{Type: graphql.String},
		},
	})

	liveStateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "EntityLiveState",
		Fields: graphql.Fields{
			"entity_id":     &graphql.Field{Type: graphql.String},
			"latest_sample": &graphql.Field{Type: sampleType},
			"updated_at":    &graphql.Field{Type: graphql.String},
		},
	})

	geofenceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Geofence",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"entity_scope": &graphql.Field{Type: graphql.String},
			"created_at":   &graphql.Field{Type: graphql.String},
		},
	})

	statsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stats",
		Fields: graphql.Fields{
			"tracked_entities": &graphql.Field{Type: graphql.Int},
			"geofences":        &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"currentLocation": &graphql.Field{
				Type:        liveStateType,
				Description: "Latest known position of one entity",
				Args: graphql.FieldConfigArgument{
					"entity_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					entityID := p.Args["entity_id"].(string)
					return deps.Queries.CurrentLocation(p.Context, entityID)
				},
			},
			"locationHistory": &graphql.Field{
				Type:        graphql.NewList(sampleType),
				Description: "Historical positions for an entity within a window",
				Args: graphql.FieldConfigArgument{
					"entity_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"from":      &graphql.ArgumentConfig{Type: graphql.String},
					"to":        &graphql.ArgumentConfig{Type: graphql.String},
					"limit":     &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					entityID := p.Args["entity_id"].(string)
					limit := p.Args["limit"].(int)
					var from, to time.Time
					var err error
					if raw, ok := p.Args["from"].(string); ok && raw != "" {
						if from, err = time.Parse(time.RFC3339, raw); err != nil {
							return nil, err
						}
					}
					if raw, ok := p.Args["to"].(string); ok && raw != "" {
						if to, err = time.Parse(time.RFC3339, raw); err != nil {
							return nil, err
						}
					}
					page, err := deps.Queries.History(p.Context, entityID, from, to, "", limit)
					if err != nil {
						return nil, err
					}
					return page.Samples, nil
				},
			},
			"geofences": &graphql.Field{
				Type:        graphql.NewList(geofenceType),
				Description: "Registered geofences, optionally filtered by entity scope",
				Args: graphql.FieldConfigArgument{
					"entity_scope": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					scope := p.Args["entity_scope"].(string)
					return deps.Geofences.List(p.Context, scope), nil
				},
			},
			"geofence": &graphql.Field{
				Type:        geofenceType,
				Description: "Get a geofence by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Geofences.Get(p.Context, id)
				},
			},
			"stats": &graphql.Field{
				Type:        statsType,
				Description: "Working set sizes of the tracking engine",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Queries.Stats(), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
