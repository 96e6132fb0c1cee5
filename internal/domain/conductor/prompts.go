package conductor

const systemPrompt = `You are "Conductor", a public transit assistant.

Rules:
- Answer in the language the user writes in.
- Be precise; use only the provided context, never invent routes.
- Always name the bus number, the boarding and alighting stops, and the direction of travel.
- If no route exists, say so plainly and suggest alternatives (metro, taxi).
- Show fares with their currency.
- If you do not know the user's location, ask for it.
- Keep answers short and clear.`

const intentParsePrompt = `Analyze the user's message and answer with JSON only.

Possible intents:
- route_find: a route between two points
- bus_info: information about a specific bus number
- stop_info: information about a specific stop
- nearby_stops: stops close to the user
- fare_info: a question about pricing
- schedule_info: a question about times or duration
- general: anything else

Possible entities:
- origin: starting point (string, or "user_location" for phrases like "from here", "near me")
- destination: end point (string)
- bus_number: bus number (string)
- stop_name: stop name (string)

Answer with JSON only, nothing else.

Example:
User: "Which bus goes to Central Station?"
{"intent": "route_find", "entities": {"origin": "user_location", "destination": "central station"}}

User: "Where does bus 65 stop?"
{"intent": "bus_info", "entities": {"bus_number": "65"}}

User message: %s`

const routeContextTemplate = `Answer the user using the route information below.

%s

User question: %s`

const (
	greeting             = "Hi! I am Conductor, your bus assistant. How can I help you?"
	greetingWithLocation = "Hi! I am Conductor, your bus assistant.\nThese stops are near you: %s\nHow can I help you?"
	locationRequest      = "I don't know your current location yet. Please tell me where you are or share your position."
)

// Suggestions are the fixed chips shown under the greeting.
var Suggestions = []string{
	"Any stops nearby?",
	"Tell me about bus 65",
	"How do I get to Central Station?",
}
