package recordstore

import "github.com/vbonduro/canary/internal/domain"

const imageBase = "https://www1833.github.io/Team-Canary4/images/"

// SeedMembers returns the canonical roster. Each call builds a new slice.
func SeedMembers() []domain.Member {
	return []domain.Member{
		{ID: 1, Number: 1, Name: "五十嵐　優歩", Position: "投手", Handed: "右投げ右打ち", Comment: "ポルシェ", PhotoURL: imageBase + "igarashi.jpg"},
		{ID: 2, Number: 2, Name: "岩崎　航", Position: "内野手", Handed: "右投げ右打ち", Comment: "※サイト管理者", PhotoURL: imageBase + "iwasaki2.jpg"},
		{ID: 3, Number: 3, Name: "内田 良太", Position: "外野手", Handed: "右投げ右打ち", Comment: "ボーリング大会のみ参加します", PhotoURL: imageBase + "uchida.jpg"},
		{ID: 4, Number: 4, Name: "馬場　弦也", Position: "内野手", Handed: "左投げ右打ち", Comment: "レアキャラ", PhotoURL: imageBase + "baba.jpg"},
		{ID: 5, Number: 5, Name: "井戸本　麻美", Position: "内野手", Handed: "右投げ右打ち", Comment: "Welcome to 野毛", PhotoURL: imageBase + "asami.jpg"},
		{ID: 6, Number: 6, Name: "荒木　潤平", Position: "捕手", Handed: "右投げ右打ち", Comment: "媚びぬ！退かぬ！省みぬ！", PhotoURL: imageBase + "araki.jpg"},
		{ID: 7, Number: 7, Name: "長谷　悠樹", Position: "外野手", Handed: "右投げ右打ち", Comment: "Ohana", PhotoURL: imageBase + "nagatani3.jpg"},
		{ID: 8, Number: 9, Name: "井戸本　たけし", Position: "外野手", Handed: "右投げ左打ち", Comment: "夢にときめけ！ 明日にきらめけ！", PhotoURL: imageBase + "takeshi.jpg"},
		{ID: 9, Number: 30, Name: "高橋　拓", Position: "投手", Handed: "左投げ左打ち", Comment: "好きな言葉「地主」", PhotoURL: imageBase + "takahashi.jpg"},
		{ID: 10, Number: 10, Name: "宮城　有弥", Position: "内野手", Handed: "右投げ右打ち", Comment: "右打ちと目押しが得意", PhotoURL: imageBase + "miyashiro.jpg"},
	}
}

// SeedGallery returns the canonical gallery. Each call builds a new slice.
func SeedGallery() []domain.GalleryItem {
	return []domain.GalleryItem{
		{ID: 1, ImageURL: imageBase + "1.jpg", Caption: "バッティング練習"},
		{ID: 2, ImageURL: imageBase + "2.jpg", Caption: "メンタルトレーニング"},
		{ID: 3, ImageURL: imageBase + "3.jpg", Caption: "懇親会"},
		{ID: 4, ImageURL: imageBase + "4.jpg", Caption: "視察風景"},
	}
}
