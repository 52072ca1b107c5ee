package constant

const (
	WelcomeMessage = "👋 你好，我是 ERABU\n\n请问您想咨询什么？或者直接告诉我您的搬家计划也可以。\n\n我可以帮您："

	ResetGreeting = "👋 好的，我们重新开始吧！\n\n请问您想咨询什么？或者直接告诉我您的搬家计划也可以。"

	// %d is the confirmed total.
	ItemsConfirmedMessage = "已添加 %d件物品，已添加的行李可点击页面右上角【搬家清单】查看"

	QuoteSubmittedMessage = "报价请求已提交！我们将尽快为您联系搬家公司获取报价。"

	AddressConfirmedMessage = "好的，地址已确认：%s"
	AddressDeclinedMessage  = "好的，请重新告诉我正确的地址。"
	AddressRejectedMessage  = "没有找到正确的地址吗？请提供更详细的地址，例如邮编或区名。"
	AddressConfirmMessage   = "请确认这个地址是否正确：%s"

	ItemsRecognizedMessage   = "识别到以下物品，请确认或修改后添加到搬家清单。"
	NoItemsRecognizedMessage = "这张照片里没有识别到需要搬运的物品，可以换一张照片，或者直接告诉我有哪些物品。"

	SpecialNotesPrefix  = "特殊事项："
	AllCollectedMessage = "信息已经收集完毕，请确认后提交报价。"

	ReplyFallbackMessage = "抱歉，我这边暂时出了点问题，请稍后再试。"
)

// FieldQuestions is the default question per field, used when the reply
// model is unavailable and as guidance for it.
var FieldQuestions = map[string]string{
	"people_count":        "请问是几个人搬家呢？单身、小家庭还是大家族？",
	"from_address":        "请问您是从哪里搬出呢？方便告诉我邮编或详细地址吗？",
	"from_building_type":  "请问搬出的地方是什么类型的建筑呢？",
	"from_room_type":      "请问搬出的房子是什么户型呢？比如 1K、2LDK。",
	"to_address":          "请问您要搬到哪里呢？知道大概的城市或区就可以~",
	"move_date":           "请问您计划什么时候搬家呢？",
	"items":               "接下来我们来确认需要搬运的物品。您可以上传房间照片，或者直接告诉我有哪些大件家具家电。",
	"from_floor_elevator": "请问您现在住在几楼？有电梯吗？",
	"to_floor_elevator":   "请问新家在几楼？有电梯吗？",
	"packing_service":     "请问打包工作是需要搬家公司帮忙，还是自己打包呢？",
	"special_notes":       "请问有什么特殊情况或注意事项需要告知搬家公司吗？",
}
