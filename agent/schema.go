package agent

import "encoding/json"

// JSON schemas for structured outputs. Kept as raw documents rather than
// generated from Go types so the wire contract is explicit and reviewable.

// categorizationSchema constrains the classification decision for one
// content item: either a skip, or up to MaxAssignments topic assignments.
var categorizationSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "skip": {
      "type": "boolean",
      "description": "True when the content is technical noise rather than news"
    },
    "assignments": {
      "type": "array",
      "maxItems": 5,
      "items": {
        "type": "object",
        "properties": {
          "topicName": {
            "type": "string",
            "description": "Existing topic name or a new topic name being created"
          },
          "isNew": {
            "type": "boolean",
            "description": "True when this assignment creates a new topic"
          },
          "furtherReadings": {
            "type": "array",
            "maxItems": 3,
            "items": {
              "type": "string",
              "description": "Direct link to a full article about this topic"
            }
          }
        },
        "required": ["topicName", "isNew"],
        "additionalProperties": false
      }
    }
  },
  "required": ["skip"],
  "additionalProperties": false
}`)

// summarySchema constrains the per-topic summary output.
var summarySchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {
      "type": "string",
      "description": "Headline for the topic summary"
    },
    "summary": {
      "type": "string",
      "description": "Detailed summary of the news events for the topic"
    },
    "image": {
      "type": "string",
      "description": "URL of a relevant image picked from the source content"
    }
  },
  "required": ["title", "summary", "image"],
  "additionalProperties": false
}`)

// sourcesSchema constrains suggested news sources for a subject.
var sourcesSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "sources": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {
            "type": "string",
            "description": "Name of the source"
          },
          "url": {
            "type": "string",
            "description": "URL of the source"
          },
          "description": {
            "type": "string",
            "description": "Short description of the source"
          }
        },
        "required": ["name", "url", "description"],
        "additionalProperties": false
      }
    }
  },
  "required": ["sources"],
  "additionalProperties": false
}`)
