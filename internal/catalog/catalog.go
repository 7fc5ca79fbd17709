// Package catalog resolves (language, key, bindings) to a localized message.
// It is a pure lookup over a fixed template table; the conversation engine
// owns all decisions about WHICH key to send.
package catalog

import (
	"strings"

	"github.com/cleannadu/complaint-bot-go/internal/domain"
)

// Key identifies one message template.
type Key string

const (
	KeyWelcome           Key = "welcome"
	KeyMenu              Key = "menu"
	KeyPhotoPrompt       Key = "photoPrompt"
	KeyLocationChoice    Key = "locationChoice"
	KeyGPSPrompt         Key = "gpsPrompt"
	KeyAddressPrompt     Key = "addressPrompt"
	KeyTrackPrompt       Key = "trackPrompt"
	KeyRegistered        Key = "registered"
	KeyNotFound          Key = "notFound"
	KeyStatus            Key = "status"
	KeyInvalidOption     Key = "invalidOption"
	KeyInvalidTrackingID Key = "invalidTrackingId"
	KeyLanguageConfirm   Key = "languageConfirm"
	KeyLanguageChanged   Key = "languageChanged"
	KeyFarewell          Key = "farewell"
	KeyRetryLater        Key = "retryLater"
	KeyApology           Key = "apology"
	KeySelector          Key = "selector"
)

// Catalog is the message template table. Safe for concurrent use.
type Catalog struct {
	messages map[domain.Language]map[Key]string
}

// New returns the catalog with the built-in Tamil/English/Hindi templates.
func New() *Catalog {
	return &Catalog{messages: builtin}
}

// Render resolves a template and binds {name} placeholders.
// Unset languages render in English; a key missing from a language falls
// back to the English template so a translation gap never drops a reply.
func (c *Catalog) Render(lang domain.Language, key Key, vars map[string]string) string {
	table, ok := c.messages[lang.OrDefault()]
	if !ok {
		table = c.messages[domain.LangEnglish]
	}
	msg, ok := table[key]
	if !ok {
		msg = c.messages[domain.LangEnglish][key]
	}
	for k, v := range vars {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

// WithSelector appends the language-selector footer shown under menu-class
// replies.
func (c *Catalog) WithSelector(lang domain.Language, msg string) string {
	return msg + "\n\n" + c.Render(lang, KeySelector, nil)
}

var builtin = map[domain.Language]map[Key]string{
	domain.LangEnglish: {
		KeyWelcome:           "🙏 Welcome to CleanNadu!\n\nPlease select your preferred language:\n\n1️⃣ தமிழ்\n2️⃣ English\n3️⃣ हिंदी",
		KeyMenu:              "📋 Please select an option:\n\n1️⃣ File a cleanliness complaint\n2️⃣ Track complaint status\n\nType \"exit\" to leave at any time.",
		KeyPhotoPrompt:       "📸 Please send a photo of the unclean location.",
		KeyLocationChoice:    "📍 How would you like to share the location?\n\n1️⃣ Share GPS location\n2️⃣ Type the address",
		KeyGPSPrompt:         "📍 Please share your live location.\n\nOr type the address instead.",
		KeyAddressPrompt:     "📝 Please type the address of the unclean location.",
		KeyTrackPrompt:       "🔍 Please enter your complaint ID (e.g., CLN-000001)",
		KeyRegistered:        "✅ Your complaint has been registered!\n\n🆔 Complaint ID: {id}\n📊 Status: Pending\n\nUse this ID to track your complaint.",
		KeyNotFound:          "❌ Complaint not found. Please check the ID.",
		KeyStatus:            "📋 Complaint Details:\n\n🆔 ID: {id}\n📊 Status: {status}\n📍 Location: {location}\n📅 Date: {date}",
		KeyInvalidOption:     "❌ Invalid option. Please try again.",
		KeyInvalidTrackingID: "❌ Invalid complaint ID format. Should be CLN-XXXXXX.",
		KeyLanguageConfirm:   "Did you mean English?\n\nReply YES or NO.",
		KeyLanguageChanged:   "✅ Language changed to English",
		KeyFarewell:          "🙏 Thank you! See you again. CleanNadu at your service.",
		KeyRetryLater:        "⚠️ Temporary problem on our side. Please try again in a moment.",
		KeyApology:           "😔 Sorry, something went wrong. Send \"menu\" or \"exit\" to restart.",
		KeySelector:          "🌐 Language: 1️⃣ தமிழ் | 2️⃣ English | 3️⃣ हिंदी",
	},
	domain.LangTamil: {
		KeyWelcome:           "🙏 க்ளீன்நாடு வாட்ஸ்அப் சேவையில் வரவேற்கிறோம்!\n\nஉங்கள் விருப்ப மொழியைத் தேர்ந்தெடுக்கவும்:\n\n1️⃣ தமிழ்\n2️⃣ English\n3️⃣ हिंदी",
		KeyMenu:              "📋 தயவுசெய்து ஒரு விருப்பத்தை தேர்ந்தெடுக்கவும்:\n\n1️⃣ புகார் பதிவு செய்ய\n2️⃣ புகாரை கண்காணிக்க\n\nஎப்போது வேண்டுமானாலும் \"exit\" என அனுப்பலாம்.",
		KeyPhotoPrompt:       "📸 சுத்தமில்லாத இடத்தின் படத்தை அனுப்பவும்.",
		KeyLocationChoice:    "📍 இருப்பிடத்தை எவ்வாறு பகிர விரும்புகிறீர்கள்?\n\n1️⃣ GPS இருப்பிடம் பகிர\n2️⃣ முகவரியை தட்டச்சு செய்ய",
		KeyGPSPrompt:         "📍 உங்கள் நேரடி இருப்பிடத்தை பகிரவும்.\n\nஅல்லது முகவரியை தட்டச்சு செய்யவும்.",
		KeyAddressPrompt:     "📝 சுத்தமில்லாத இடத்தின் முகவரியை தட்டச்சு செய்யவும்.",
		KeyTrackPrompt:       "🔍 உங்கள் புகார் எண்ணை உள்ளிடவும் (எ.கா: CLN-000001)",
		KeyRegistered:        "✅ உங்கள் புகார் பதிவு செய்யப்பட்டது!\n\n🆔 புகார் எண்: {id}\n📊 நிலை: நிலுவையில்\n\nஇந்த எண்ணைப் பயன்படுத்தி உங்கள் புகாரைக் கண்காணிக்கலாம்.",
		KeyNotFound:          "❌ புகார் கிடைக்கவில்லை. தயவுசெய்து எண்ணை சரிபார்க்கவும்.",
		KeyStatus:            "📋 புகார் விவரங்கள்:\n\n🆔 எண்: {id}\n📊 நிலை: {status}\n📍 இடம்: {location}\n📅 தேதி: {date}",
		KeyInvalidOption:     "❌ தவறான விருப்பம். தயவுசெய்து மீண்டும் முயற்சிக்கவும்.",
		KeyInvalidTrackingID: "❌ தவறான புகார் எண் வடிவம். CLN-XXXXXX வடிவத்தில் இருக்க வேண்டும்.",
		KeyLanguageConfirm:   "தமிழ் என்று சொல்ல வேண்டுமா?\n\nYES அல்லது NO என்று பதிலளிக்கவும்.",
		KeyLanguageChanged:   "✅ மொழி தமிழுக்கு மாற்றப்பட்டது",
		KeyFarewell:          "🙏 நன்றி! மீண்டும் வருக. க்ளீன்நாடு உங்கள் சேவையில்.",
		KeyRetryLater:        "⚠️ தற்காலிக பிழை. சிறிது நேரம் கழித்து மீண்டும் முயற்சிக்கவும்.",
		KeyApology:           "😔 மன்னிக்கவும், ஏதோ தவறு நடந்தது. \"menu\" அல்லது \"exit\" என அனுப்பவும்.",
		KeySelector:          "🌐 மொழி: 1️⃣ தமிழ் | 2️⃣ English | 3️⃣ हिंदी",
	},
	domain.LangHindi: {
		KeyWelcome:           "🙏 क्लीननाडु में आपका स्वागत है!\n\nकृपया अपनी पसंदीदा भाषा चुनें:\n\n1️⃣ தமிழ்\n2️⃣ English\n3️⃣ हिंदी",
		KeyMenu:              "📋 कृपया एक विकल्प चुनें:\n\n1️⃣ शिकायत दर्ज करें\n2️⃣ शिकायत की स्थिति ट्रैक करें\n\nकभी भी \"exit\" भेज सकते हैं।",
		KeyPhotoPrompt:       "📸 कृपया गंदे स्थान की छवि भेजें।",
		KeyLocationChoice:    "📍 आप स्थान कैसे साझा करना चाहेंगे?\n\n1️⃣ GPS लोकेशन साझा करें\n2️⃣ पता टाइप करें",
		KeyGPSPrompt:         "📍 कृपया अपनी लाइव लोकेशन साझा करें।\n\nया पता टाइप करें।",
		KeyAddressPrompt:     "📝 कृपया गंदे स्थान का पता टाइप करें।",
		KeyTrackPrompt:       "🔍 कृपया अपनी शिकायत आईडी दर्ज करें (उदा: CLN-000001)",
		KeyRegistered:        "✅ आपकी शिकायत दर्ज कर ली गई है!\n\n🆔 शिकायत आईडी: {id}\n📊 स्थिति: लंबित\n\nअपनी शिकायत को ट्रैक करने के लिए इस आईडी का उपयोग करें।",
		KeyNotFound:          "❌ शिकायत नहीं मिली। कृपया आईडी जांचें।",
		KeyStatus:            "📋 शिकायत विवरण:\n\n🆔 आईडी: {id}\n📊 स्थिति: {status}\n📍 स्थान: {location}\n📅 तारीख: {date}",
		KeyInvalidOption:     "❌ अमान्य विकल्प। कृपया पुनः प्रयास करें।",
		KeyInvalidTrackingID: "❌ अमान्य शिकायत आईडी प्रारूप। CLN-XXXXXX होना चाहिए।",
		KeyLanguageConfirm:   "क्या आपका मतलब हिंदी था?\n\nYES या NO में उत्तर दें।",
		KeyLanguageChanged:   "✅ भाषा हिंदी में बदल दी गई",
		KeyFarewell:          "🙏 धन्यवाद! फिर मिलेंगे। क्लीननाडु आपकी सेवा में।",
		KeyRetryLater:        "⚠️ अस्थायी त्रुटि। कृपया थोड़ी देर बाद पुनः प्रयास करें।",
		KeyApology:           "😔 क्षमा करें, कुछ गलत हो गया। \"menu\" या \"exit\" भेजें।",
		KeySelector:          "🌐 भाषा: 1️⃣ தமிழ் | 2️⃣ English | 3️⃣ हिंदी",
	},
}
