package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

// buildSchema creates the GraphQL schema wired to our services. Read-side
// only; ingestion stays on the REST and NATS paths.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	officeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Office",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"code":     &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: geoPointType},
		},
	})

	readerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Reader",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"reader_id": &graphql.Field{Type: graphql.String},
			"name":      &graphql.Field{Type: graphql.String},
			"office_id": &graphql.Field{Type: graphql.String},
			"location":  &graphql.Field{Type: geoPointType},
			"status":    &graphql.Field{Type: graphql.String},
			"last_seen": &graphql.Field{Type: graphql.DateTime},
		},
	})

	tagType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Tag",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.String},
			"epc":       &graphql.Field{Type: graphql.String},
			"tag_type":  &graphql.Field{Type: graphql.String},
			"is_active": &graphql.Field{Type: graphql.Boolean},
		},
	})

	eventType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DetectionEvent",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"tag_id":         &graphql.Field{Type: graphql.String},
			"reader_id":      &graphql.Field{Type: graphql.String},
			"detected_at":    &graphql.Field{Type: graphql.DateTime},
			"rssi":           &graphql.Field{Type: graphql.Int},
			"received_order": &graphql.Field{Type: graphql.Int},
		},
	})

	alertType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Alert",
		Fields: graphql.Fields{
			"id":              &graphql.Field{Type: graphql.String},
			"type":            &graphql.Field{Type: graphql.String},
			"asset_id":        &graphql.Field{Type: graphql.String},
			"geofence_id":     &graphql.Field{Type: graphql.String},
			"distance_meters": &graphql.Field{Type: graphql.Float},
			"occurred_at":     &graphql.Field{Type: graphql.DateTime},
			"source_event_id": &graphql.Field{Type: graphql.String},
			"message":         &graphql.Field{Type: graphql.String},
		},
	})

	violationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Violation",
		Fields: graphql.Fields{
			"asset_id":           &graphql.Field{Type: graphql.String},
			"asset_code":         &graphql.Field{Type: graphql.String},
			"asset_name":         &graphql.Field{Type: graphql.String},
			"expected_office_id": &graphql.Field{Type: graphql.String},
			"detected_office_id": &graphql.Field{Type: graphql.String},
			"detected_at":        &graphql.Field{Type: graphql.DateTime},
			"reader_id":          &graphql.Field{Type: graphql.String},
		},
	})

	assetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Asset",
		Fields: graphql.Fields{
			"id":                 &graphql.Field{Type: graphql.String},
			"asset_code":         &graphql.Field{Type: graphql.String},
			"name":               &graphql.Field{Type: graphql.String},
			"expected_office_id": &graphql.Field{Type: graphql.String},
			"rfid_tag_id":        &graphql.Field{Type: graphql.String},
		},
	})

	activeAssetType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ActiveAsset",
		Fields: graphql.Fields{
			"asset":              &graphql.Field{Type: assetType},
			"detected_office_id": &graphql.Field{Type: graphql.String},
			"reader_id":          &graphql.Field{Type: graphql.String},
			"detected_at":        &graphql.Field{Type: graphql.DateTime},
		},
	})

	containmentStateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ContainmentState",
		Fields: graphql.Fields{
			"asset_id":            &graphql.Field{Type: graphql.String},
			"geofence_id":         &graphql.Field{Type: graphql.String},
			"is_inside":           &graphql.Field{Type: graphql.Boolean},
			"last_evaluated_at":   &graphql.Field{Type: graphql.DateTime},
			"last_received_order": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"offices": &graphql.Field{
				Type:        graphql.NewList(officeType),
				Description: "List all offices",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Offices.List(p.Context)
				},
			},
			"readers": &graphql.Field{
				Type:        graphql.NewList(readerType),
				Description: "List all registered RFID readers",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Readers.List(p.Context)
				},
			},
			"reader": &graphql.Field{
				Type:        readerType,
				Description: "Get a reader by ID or device reader code",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Readers.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"tags": &graphql.Field{
				Type:        graphql.NewList(tagType),
				Description: "List RFID tags",
				Args: graphql.FieldConfigArgument{
					"active": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tags.List(p.Context, p.Args["active"].(bool))
				},
			},
			"recentEvents": &graphql.Field{
				Type:        graphql.NewList(eventType),
				Description: "Most recent detection events",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Events.ListRecent(p.Context, p.Args["limit"].(int))
				},
			},
			"alerts": &graphql.Field{
				Type:        graphql.NewList(alertType),
				Description: "Most recent geofence alerts",
				Args: graphql.FieldConfigArgument{
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Alerts.ListRecent(p.Context, p.Args["limit"].(int))
				},
			},
			"violations": &graphql.Field{
				Type:        graphql.NewList(violationType),
				Description: "Assets detected outside their expected office within the scan window",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Violations.Scan(p.Context)
				},
			},
			"activeAssets": &graphql.Field{
				Type:        graphql.NewList(activeAssetType),
				Description: "Assets detected within the scan window",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Violations.ActiveAssets(p.Context)
				},
			},
			"assetContainment": &graphql.Field{
				Type:        graphql.NewList(containmentStateType),
				Description: "Tracked containment states for one asset",
				Args: graphql.FieldConfigArgument{
					"asset_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Containments.ContainmentStates(p.Context, p.Args["asset_id"].(string))
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
		// This would be a programming error in the schema definition
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
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
