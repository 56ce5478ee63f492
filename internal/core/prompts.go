package core

// prompts.go defines the Vietnamese language prompts and canned replies used
// by the chat engine and the intent classifier. Keeping them in one file
// makes them easy to tweak without touching the rest of the code.

const (
	// NursePrompt is the system prompt for generic chat. It casts the
	// assistant as a friendly AI nurse giving basic health advice, never a
	// substitute for a real diagnosis.
	NursePrompt = "Bạn là một y tá AI thân thiện. Hãy trả lời ngắn gọn, dễ hiểu và đưa ra " +
		"lời khuyên sức khỏe cơ bản bằng ngôn ngữ của người dùng. Bạn không thay thế " +
		"chẩn đoán của bác sĩ; khi triệu chứng có vẻ nghiêm trọng, hãy khuyên người dùng " +
		"đi khám trực tiếp."

	// intentPromptFormat asks the oracle to decide, yes or no, whether the
	// user wants to see a doctor. The reply must be exactly "yes" or "no".
	intentPromptFormat = "Người dùng nói: \"%s\"\n" +
		"Người dùng có muốn gặp hoặc đặt lịch với bác sĩ không? " +
		"Chỉ trả lời duy nhất một từ: \"yes\" hoặc \"no\"."

	// doctorPromptFormat casts the oracle as the assigned doctor. The reply
	// should be moderate, friendly, non-definitive, and recommend an
	// in-person visit when appropriate.
	doctorPromptFormat = "Bạn là bác sĩ %s, chuyên khoa %s. Hãy trò chuyện thân thiện, " +
		"đưa ra nhận định chừng mực bằng ngôn ngữ của người dùng, không kết luận chắc chắn, " +
		"và khuyên bệnh nhân đến khám trực tiếp khi cần thiết.\n\n%s\nBác sĩ:"

	// handoffQuestionFormat is appended when a matching doctor is found and
	// asks the user to confirm the handoff.
	handoffQuestionFormat = "Tôi tìm thấy bác sĩ %s, chuyên khoa %s (%s). " +
		"Bạn có muốn trò chuyện với bác sĩ không? (có/không)"

	// handoffAcceptedFormat announces the handoff once the user confirms.
	handoffAcceptedFormat = "Đã kết nối bạn với bác sĩ chuyên khoa %s: %s. " +
		"Bác sĩ sẽ trao đổi với bạn ngay bây giờ."

	// handoffDeclined is appended when the user turns the offer down.
	handoffDeclined = "Không sao, tôi vẫn ở đây để hỗ trợ bạn. " +
		"Bạn cứ tiếp tục chia sẻ về tình trạng sức khỏe của mình nhé."

	// emptyPreview is the list preview shown for a conversation that has no
	// messages yet.
	emptyPreview = "Cuộc trò chuyện mới"

	// placeholderDoctorName is surfaced by the triage endpoint when no real
	// doctor covers the suggested specialty.
	placeholderDoctorName = "Đang cập nhật"
)
