package validators

import "go.mongodb.org/mongo-driver/bson"

const hhmmPattern = `^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)$`

var timeRange = bson.M{
	"bsonType": "object",
	"required": []string{"start_time", "end_time"},
	"properties": bson.M{
		"start_time": bson.M{
			"bsonType": "string",
			"pattern":  hhmmPattern,
		},
		"end_time": bson.M{
			"bsonType": "string",
			"pattern":  hhmmPattern,
		},
	},
}

var WorkingHoursValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"resource_id",
			"tenant_id",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"resource_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"tenant_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"time_zone": bson.M{
				"bsonType": "string",
			},

			"weekly": bson.M{
				"bsonType": []string{"array", "null"},
				"maxItems": 50,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"day_of_week", "start_time", "end_time"},
					"properties": bson.M{
						"day_of_week": bson.M{
							"bsonType": []string{"int", "long"},
							"minimum":  0,
							"maximum":  6,
						},
						"start_time": bson.M{
							"bsonType": "string",
							"pattern":  hhmmPattern,
						},
						"end_time": bson.M{
							"bsonType": "string",
							"pattern":  hhmmPattern,
						},
					},
				},
			},

			"overrides": bson.M{
				"bsonType": []string{"array", "null"},
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"date"},
					"properties": bson.M{
						"date": bson.M{
							"bsonType": "string",
							"pattern":  `^\d{4}-\d{2}-\d{2}$`,
						},
						"intervals": bson.M{
							"bsonType": []string{"array", "null"},
							"items":    timeRange,
						},
					},
				},
			},
		},
	},
}

var ServiceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"tenant_id",
			"name",
			"duration_min",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},
			"tenant_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},
			"name": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},
			"duration_min": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  1440,
			},
			"slot_step_min": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  1440,
			},
		},
	},
}
