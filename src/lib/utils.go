package lib

import "github.com/gofiber/fiber/v2"

// MessageResponse builds the {message} body every endpoint answers with.
func MessageResponse(message string) fiber.Map {
	return fiber.Map{
		"message": message,
	}
}

// MessageWith adds fields to a message response.
func MessageWith(message string, fields fiber.Map) fiber.Map {
	body := MessageResponse(message)
	for k, v := range fields {
		body[k] = v
	}
	return body
}
