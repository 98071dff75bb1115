package bot

// English templates for the admin broadcast dialog. Localization string
// tables are out of scope; keep these in one place so a future table swap
// stays mechanical.
const (
	msgWelcome = "👋 Welcome! You are registered and will receive announcements from this bot."

	msgBroadcastPrompt = "📢 Send the message you want to broadcast to all users.\n\n" +
		"Supported: Text, Photo, Video, Document, Animation"

	msgBroadcastConfirm = "📢 <b>Confirm Broadcast</b>\n\n" +
		"👥 Total Users: %d\n\n" +
		"Are you sure you want to send this message to all users?"

	msgBroadcastStarted = "📢 <b>Broadcast Started!</b>\n\n" +
		"👥 Total Users: %d\n\n" +
		"This may take a while..."

	msgBroadcastComplete = "✅ <b>Broadcast Complete!</b>\n\n" +
		"👥 Total Users: %d\n" +
		"✅ Successfully Sent: %d\n" +
		"❌ Failed: %d\n" +
		"🚫 Blocked Bot: %d\n" +
		"⏱️ Time Taken: %s"

	msgBroadcastCancelled   = "❌ Broadcast cancelled."
	msgBroadcastUnsupported = "❌ Unsupported content. Send text, a photo, a video, a document or an animation."
	msgBroadcastBusy        = "⏳ A broadcast is already running."
	msgBroadcastFailed      = "❌ Broadcast failed to start. Please try again later."

	btnConfirm = "✅ Confirm"
	btnCancel  = "❌ Cancel"

	cbConfirm = "bc:confirm"
	cbCancel  = "bc:cancel"
)
